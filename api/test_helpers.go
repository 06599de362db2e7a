package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type apiTests []apiTest

type apiTest struct {
	name                string
	path                string
	method              string
	body                []byte
	setContainerMethods func(c *mockContainer)
	statusCode          int
	expectedResponse    func() ([]byte, error)
}

func runAPITests(t *testing.T, tests apiTests) {
	t.Helper()
	gateway := &Gateway{
		config: &GatewayConfig{},
	}

	ts := httptest.NewServer(gateway.newV1Router())
	defer ts.Close()

	for _, test := range tests {
		container := &mockContainer{}
		if test.setContainerMethods != nil {
			test.setContainerMethods(container)
		}
		gateway.container = container

		req, err := http.NewRequest(test.method, fmt.Sprintf("%s%s", ts.URL, test.path), bytes.NewReader(test.body))
		if err != nil {
			t.Fatal(err)
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		response, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != test.statusCode {
			t.Errorf("%s: Expected status code %d, got %d (%s)", test.name, test.statusCode, res.StatusCode, string(response))
			continue
		}
		expected, err := test.expectedResponse()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(response, expected) {
			t.Errorf("%s: Expected response %s, got %s", test.name, string(expected), string(response))
			continue
		}
	}
}
