// Package testutil provides test utilities and fixtures for unit tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.yaml.in/yaml/v4"
)

// PetstoreOAS3 is a small OpenAPI 3.0 document exercising path, query and
// header parameters, request bodies, tags and a paginated list operation.
const PetstoreOAS3 = `openapi: 3.0.3
info:
  title: Petstore
  version: 1.2.0
servers:
  - url: https://petstore.example.com/v1
paths:
  /pets:
    get:
      operationId: listPets
      summary: List pets
      tags: [pets]
      parameters:
        - name: per_page
          in: query
          schema: {type: integer}
        - name: page
          in: query
          schema: {type: integer}
        - name: status
          in: query
          required: false
          schema: {type: string}
    post:
      operationId: createPet
      summary: Create a pet
      tags: [pets]
      requestBody:
        required: true
        content:
          application/json:
            schema: {type: object}
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        required: true
        schema: {type: string}
    get:
      operationId: get_pet_by_id
      summary: Info for a specific pet
      tags: [pets]
      parameters:
        - name: X-Trace
          in: header
          schema: {type: string}
    delete:
      summary: Delete a pet
      deprecated: true
      tags: [pets, admin]
      security:
        - apiKey: []
  /stores/{storeId}/orders:
    get:
      operationId: listOrders
      tags: [store]
      parameters:
        - name: storeId
          in: path
          required: true
          schema: {type: string}
        - name: cursor
          in: query
          schema: {type: string}
`

// PetstoreOAS2 is the Swagger 2.0 flavor of a minimal petstore, in JSON.
const PetstoreOAS2 = `{
  "swagger": "2.0",
  "info": {"title": "Petstore v2", "version": "1.0.0"},
  "host": "petstore.example.com",
  "basePath": "/v2",
  "schemes": ["https"],
  "paths": {
    "/pets/{petId}": {
      "get": {
        "operationId": "getPet",
        "tags": ["pets"],
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "type": "string"}
        ]
      },
      "put": {
        "operationId": "updatePet",
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "type": "string"},
          {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
        ]
      }
    }
  }
}`

var (
	rsaOnce sync.Once
	rsaKey  *rsa.PrivateKey
	rsaPEM  []byte
	rsaErr  error
)

// RSAKey returns a 2048-bit RSA key and its PKCS#1 PEM encoding. The key is
// generated once per test binary.
func RSAKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()

	rsaOnce.Do(func() {
		rsaKey, rsaErr = rsa.GenerateKey(rand.Reader, 2048)
		if rsaErr != nil {
			return
		}
		rsaPEM = pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(rsaKey),
		})
	})
	if rsaErr != nil {
		t.Fatalf("Failed to generate RSA key: %v", rsaErr)
	}
	return rsaKey, rsaPEM
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("Failed to encode JSON response: %v", err)
	}
}

// WriteTempFile writes data to name inside a temporary directory.
// Returns the path to the temporary file.
// The file is automatically cleaned up when the test completes (via t.TempDir).
func WriteTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	tmpFile := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		t.Fatalf("Failed to write temporary file: %v", err)
	}

	return tmpFile
}

// WriteTempYAML marshals a value to YAML and writes it to a temporary file.
// Returns the path to the temporary file.
func WriteTempYAML(t *testing.T, doc any) string {
	t.Helper()

	data, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal document to YAML: %v", err)
	}
	return WriteTempFile(t, "test.yaml", data)
}
