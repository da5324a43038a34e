package stratum

import "testing"

func TestParsePoolURLAcceptsTCPAndSSL(t *testing.T) {
	ep, err := ParsePoolURL("stratum+tcp://pool.example.com:3333")
	if err != nil {
		t.Fatalf("ParsePoolURL returned an error: %v", err)
	}
	if ep.Scheme != "tcp" || ep.Host != "pool.example.com" || ep.Port != 3333 {
		t.Fatalf("parsed endpoint = %+v, want scheme=tcp host=pool.example.com port=3333", ep)
	}
	if ep.UseTLS() {
		t.Fatalf("a tcp endpoint must not require TLS")
	}
	if got := ep.Address(); got != "pool.example.com:3333" {
		t.Fatalf("Address() = %q, want %q", got, "pool.example.com:3333")
	}

	sslEP, err := ParsePoolURL("stratum+ssl://pool.example.com:3443")
	if err != nil {
		t.Fatalf("ParsePoolURL returned an error: %v", err)
	}
	if !sslEP.UseTLS() {
		t.Fatalf("an ssl endpoint must require TLS")
	}
}

func TestParsePoolURLRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"pool.example.com:3333",
		"stratum+tcp://pool.example.com",
		"stratum+tcp://pool.example.com:not-a-port",
		"http://pool.example.com:3333",
		"stratum+tcp://:3333",
	}
	for _, raw := range cases {
		if _, err := ParsePoolURL(raw); err == nil {
			t.Fatalf("ParsePoolURL(%q) succeeded, want an error", raw)
		}
	}
}
