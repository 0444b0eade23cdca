package wms

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

// Namespace del esquema de documentos del WMS.
const Namespace = "urn:marketplace-ledger:wms:v1"

// BuildOutboundXML arma el documento de salida que recibe el WMS.
// Los datos del destinatario van en ASCII.
func BuildOutboundXML(doc *entity.OutboundOrder) ([]byte, error) {
	if doc == nil || doc.OutboundNo == "" {
		return nil, fmt.Errorf("wms: documento de salida sin número")
	}
	if len(doc.Items) == 0 {
		return nil, fmt.Errorf("wms: documento %s sin líneas", doc.OutboundNo)
	}
	x := etree.NewDocument()
	root := x.CreateElement("OutboundOrder")
	root.CreateAttr("xmlns", Namespace)

	head := root.CreateElement("Header")
	head.CreateElement("OutboundNo").SetText(doc.OutboundNo)
	head.CreateElement("WarehouseId").SetText(doc.WarehouseID)
	head.CreateElement("OrderId").SetText(doc.OrderID)
	head.CreateElement("CreatedAt").SetText(doc.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))

	rcv := root.CreateElement("Receiver")
	a := doc.Receiver
	for _, f := range []struct{ tag, val string }{
		{"Name", a.Name}, {"Phone", a.Phone}, {"Country", a.Country}, {"Province", a.Province},
		{"City", a.City}, {"District", a.District}, {"Line1", a.Line1}, {"Line2", a.Line2},
		{"PostalCode", a.PostalCode},
	} {
		if f.val != "" {
			rcv.CreateElement(f.tag).SetText(foldASCII(f.val))
		}
	}

	lines := root.CreateElement("Lines")
	for _, it := range doc.Items {
		ln := lines.CreateElement("Line")
		ln.CreateAttr("sku", it.SKU)
		ln.CreateAttr("quantity", strconv.FormatInt(it.Quantity, 10))
		if it.ProductName != "" {
			ln.CreateElement("Name").SetText(foldASCII(it.ProductName))
		}
		if it.ImageURL != "" {
			ln.CreateElement("ImageUrl").SetText(it.ImageURL)
		}
	}
	// Sin declaración ni sangría: el cuerpo se firma tal cual se envía.
	return x.WriteToBytes()
}

// submitResponse respuesta del WMS al recibir un documento.
type submitResponse struct {
	ExternalID string
	Error      string
}

func parseSubmitResponse(body []byte) (submitResponse, error) {
	x := etree.NewDocument()
	if err := x.ReadFromBytes(body); err != nil {
		return submitResponse{}, fmt.Errorf("wms: parsear respuesta: %w", err)
	}
	root := x.Root()
	if root == nil {
		return submitResponse{}, fmt.Errorf("wms: respuesta vacía")
	}
	var r submitResponse
	if el := root.FindElement("ExternalId"); el != nil {
		r.ExternalID = el.Text()
	}
	if el := root.FindElement("Error"); el != nil {
		r.Error = el.Text()
	}
	return r, nil
}

// CallbackKind qué documento reporta el WMS.
type CallbackKind string

const (
	CallbackOutbound CallbackKind = "outbound"
	CallbackInbound  CallbackKind = "inbound"
)

// Callback notificación asíncrona del WMS, ya verificada.
type Callback struct {
	Kind CallbackKind

	// Salida
	OutboundNo     string
	ExternalID     string
	Status         entity.OutboundStatus
	Carrier        string
	TrackingNumber string

	// Entrada
	InboundNo string
	SKU       string
	Received  int64
	Damaged   int64
	Remark    string
}

// ParseCallback interpreta el cuerpo XML de un callback:
//
//	<Callback type="outbound"><OutboundNo/><ExternalId/><Status/><Carrier/><TrackingNumber/></Callback>
//	<Callback type="inbound"><InboundNo/><SKU/><Received/><Damaged/><Remark/></Callback>
func ParseCallback(body []byte) (*Callback, error) {
	x := etree.NewDocument()
	if err := x.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("wms: parsear callback: %w", err)
	}
	root := x.Root()
	if root == nil || root.Tag != "Callback" {
		return nil, fmt.Errorf("wms: callback sin raíz <Callback>")
	}
	text := func(tag string) string {
		if el := root.FindElement(tag); el != nil {
			return el.Text()
		}
		return ""
	}
	cb := &Callback{Kind: CallbackKind(root.SelectAttrValue("type", ""))}
	switch cb.Kind {
	case CallbackOutbound:
		cb.OutboundNo = text("OutboundNo")
		cb.ExternalID = text("ExternalId")
		cb.Status = entity.OutboundStatus(text("Status"))
		cb.Carrier = text("Carrier")
		cb.TrackingNumber = text("TrackingNumber")
		if cb.OutboundNo == "" || cb.Status == "" {
			return nil, fmt.Errorf("wms: callback de salida incompleto")
		}
	case CallbackInbound:
		cb.InboundNo = text("InboundNo")
		cb.SKU = text("SKU")
		cb.Remark = text("Remark")
		var err error
		if cb.Received, err = parseQty(text("Received")); err != nil {
			return nil, err
		}
		if cb.Damaged, err = parseQty(text("Damaged")); err != nil {
			return nil, err
		}
		if cb.InboundNo == "" || cb.SKU == "" {
			return nil, fmt.Errorf("wms: callback de entrada incompleto")
		}
	default:
		return nil, fmt.Errorf("wms: tipo de callback desconocido %q", cb.Kind)
	}
	return cb, nil
}

func parseQty(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("wms: cantidad inválida %q", s)
	}
	return n, nil
}
