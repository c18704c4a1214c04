// Package postal resolves Brazilian postal codes (CEP) to addresses via the
// ViaCEP public API.
package postal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrNotFound reports that the postal code is well-formed but unknown.
	ErrNotFound = errors.New("postal: code not found")
	// ErrBadCode reports a malformed postal code.
	ErrBadCode = errors.New("postal: malformed code")
)

var cepRe = regexp.MustCompile(`^\d{8}$`)

// Address is the lookup result. Number and complement are always empty; the
// customer fills those in.
type Address struct {
	Street   string `json:"logradouro"`
	District string `json:"bairro"`
	City     string `json:"localidade"`
	Region   string `json:"uf"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://viacep.com.br/ws"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Lookup resolves a postal code given as exactly eight digits.
func (c *Client) Lookup(ctx context.Context, cep string) (*Address, error) {
	if !cepRe.MatchString(cep) {
		return nil, fmt.Errorf("%w: %q", ErrBadCode, cep)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/"+cep+"/json/", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("postal: lookup failed status=%d body=%s", resp.StatusCode, string(b))
	}

	// ViaCEP returns 200 with {"erro": true} for unknown codes.
	var out struct {
		Address
		Erro bool `json:"erro"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Erro {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, cep)
	}
	return &out.Address, nil
}
