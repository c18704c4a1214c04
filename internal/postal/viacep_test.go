package postal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/01310100/json/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cep":"01310-100","logradouro":"Avenida Paulista","bairro":"Bela Vista","localidade":"São Paulo","uf":"SP"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	addr, err := c.Lookup(context.Background(), "01310100")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if addr.Street != "Avenida Paulista" || addr.City != "São Paulo" || addr.Region != "SP" {
		t.Errorf("address = %+v", addr)
	}
}

func TestLookupUnknownCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"erro": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Lookup(context.Background(), "99999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup: got %v, want ErrNotFound", err)
	}
}

func TestLookupMalformedCode(t *testing.T) {
	c := NewClient("http://localhost:0")
	for _, cep := range []string{"", "1234567", "123456789", "01310-100", "abcdefgh"} {
		if _, err := c.Lookup(context.Background(), cep); !errors.Is(err, ErrBadCode) {
			t.Errorf("lookup(%q): got %v, want ErrBadCode", cep, err)
		}
	}
}
