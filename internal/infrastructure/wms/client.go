package wms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/marketplace-ledger/internal/application/ports"
	"github.com/jhoicas/marketplace-ledger/internal/domain/entity"
)

var (
	_ ports.WMSClient = (*HTTPClient)(nil)
	_ ports.WMSClient = NoopClient{}
)

// HTTPClient envía documentos de salida al WMS por HTTP con cuerpo XML firmado.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	signer     *Signer
	httpClient *http.Client
}

// NewHTTPClient construye el cliente. timeout 0 = 15 s.
func NewHTTPClient(baseURL, apiKey string, signer *Signer, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		signer:     signer,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SubmitOutbound publica el documento y devuelve el ID externo asignado por el WMS.
func (c *HTTPClient) SubmitOutbound(ctx context.Context, doc *entity.OutboundOrder) (string, error) {
	payload, err := BuildOutboundXML(doc)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/outbound-orders", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("wms: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("X-Api-Key", c.apiKey)
	if c.signer != nil {
		sig, err := c.signer.Sign(payload)
		if err != nil {
			return "", err
		}
		req.Header.Set(SignatureHeader, sig)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("wms: timeout o cancelación: %w", ctx.Err())
		}
		return "", fmt.Errorf("wms: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return "", fmt.Errorf("wms: leer respuesta: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("wms: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	r, err := parseSubmitResponse(raw)
	if err != nil {
		return "", err
	}
	if r.Error != "" {
		return "", fmt.Errorf("wms: rechazado: %s", r.Error)
	}
	if r.ExternalID == "" {
		return "", fmt.Errorf("wms: respuesta sin ExternalId")
	}
	return r.ExternalID, nil
}

// NoopClient acepta todo y devuelve un ID simulado (desarrollo, sin WMS_BASE_URL).
type NoopClient struct{}

func (NoopClient) SubmitOutbound(_ context.Context, doc *entity.OutboundOrder) (string, error) {
	return "SIM-" + doc.OutboundNo, nil
}
