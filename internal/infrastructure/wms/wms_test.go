package wms

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

func outboundDoc() *entity.OutboundOrder {
	return &entity.OutboundOrder{
		ID:          "ob-1",
		OutboundNo:  "OB20250102000001",
		OrderID:     "o-1",
		WarehouseID: "wh-PLAT",
		Receiver:    entity.Address{Name: "José Peña", City: "Bogotá", Line1: "Cra 7 # 12-34"},
		Items: []entity.OutboundOrderItem{
			{ID: "it-1", SKU: "SKU-1", ProductName: "Café Orgánico", Quantity: 3},
		},
		CreatedAt: time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestFoldASCII(t *testing.T) {
	assert.Equal(t, "Jose Pena", foldASCII(" José Peña "))
	assert.Equal(t, "Bogota", foldASCII("Bogotá"))
	assert.Equal(t, "Tokyo ??", foldASCII("Tokyo 東京"))
}

func TestBuildOutboundXML(t *testing.T) {
	out, err := BuildOutboundXML(outboundDoc())
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<OutboundNo>OB20250102000001</OutboundNo>")
	assert.Contains(t, s, "<Name>Jose Pena</Name>")
	assert.Contains(t, s, "<City>Bogota</City>")
	assert.Contains(t, s, `sku="SKU-1"`)
	assert.Contains(t, s, `quantity="3"`)
	assert.NotContains(t, s, "District")

	empty := outboundDoc()
	empty.Items = nil
	_, err = BuildOutboundXML(empty)
	assert.Error(t, err)
}

func TestSigner_SignVerify(t *testing.T) {
	s, err := NewSigner("secreto-compartido")
	require.NoError(t, err)
	body := []byte(`<Callback type="outbound"><OutboundNo>OB1</OutboundNo><Status>picking</Status></Callback>`)
	sig, err := s.Sign(body)
	require.NoError(t, err)
	assert.Len(t, sig, 64)
	assert.NoError(t, s.Verify(body, sig))

	tampered := []byte(`<Callback type="outbound"><OutboundNo>OB2</OutboundNo><Status>picking</Status></Callback>`)
	assert.ErrorIs(t, s.Verify(tampered, sig), ErrBadSignature)
	assert.ErrorIs(t, s.Verify(body, ""), ErrBadSignature)

	other, _ := NewSigner("otro")
	assert.ErrorIs(t, other.Verify(body, sig), ErrBadSignature)

	_, err = NewSigner(string(make([]byte, 65)))
	assert.Error(t, err)
}

func TestParseCallback(t *testing.T) {
	cb, err := ParseCallback([]byte(`<Callback type="outbound"><OutboundNo>OB1</OutboundNo><ExternalId>W-9</ExternalId>` +
		`<Status>shipped</Status><Carrier>Servientrega</Carrier><TrackingNumber>TRK</TrackingNumber></Callback>`))
	require.NoError(t, err)
	assert.Equal(t, CallbackOutbound, cb.Kind)
	assert.Equal(t, entity.OutboundShipped, cb.Status)
	assert.Equal(t, "TRK", cb.TrackingNumber)

	cb, err = ParseCallback([]byte(`<Callback type="inbound"><InboundNo>IB1</InboundNo><SKU>SKU-1</SKU>` +
		`<Received>90</Received><Damaged>5</Damaged></Callback>`))
	require.NoError(t, err)
	assert.Equal(t, int64(90), cb.Received)
	assert.Equal(t, int64(5), cb.Damaged)

	_, err = ParseCallback([]byte(`<Callback type="inbound"><InboundNo>IB1</InboundNo><SKU>S</SKU><Received>-1</Received></Callback>`))
	assert.Error(t, err)
	_, err = ParseCallback([]byte(`<Callback type="otro"/>`))
	assert.Error(t, err)
	_, err = ParseCallback([]byte(`no es xml`))
	assert.Error(t, err)
}

func TestHTTPClient_SubmitOutbound(t *testing.T) {
	signer, _ := NewSigner("k")
	var gotSig, gotKey string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotKey = r.Header.Get("X-Api-Key")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`<Response><ExternalId>WMS-77</ExternalId></Response>`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "api-key", signer, time.Second)
	id, err := c.SubmitOutbound(context.Background(), outboundDoc())
	require.NoError(t, err)
	assert.Equal(t, "WMS-77", id)
	assert.Equal(t, "api-key", gotKey)
	assert.NoError(t, signer.Verify(gotBody, gotSig))
}

func TestHTTPClient_Rejections(t *testing.T) {
	status := http.StatusOK
	body := `<Response><Error>bodega llena</Error></Response>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	c := NewHTTPClient(srv.URL, "k", nil, time.Second)

	_, err := c.SubmitOutbound(context.Background(), outboundDoc())
	assert.ErrorContains(t, err, "bodega llena")

	status, body = http.StatusServiceUnavailable, "down"
	_, err = c.SubmitOutbound(context.Background(), outboundDoc())
	assert.ErrorContains(t, err, "HTTP 503")
}

func TestNoopClient(t *testing.T) {
	id, err := NoopClient{}.SubmitOutbound(context.Background(), outboundDoc())
	require.NoError(t, err)
	assert.Equal(t, "SIM-OB20250102000001", id)
}
