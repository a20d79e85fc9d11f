package service

import (
	"strings"
	"testing"
	"time"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

func TestQRPayloadRoundTripsThroughScanRegex(t *testing.T) {
	p := model.Permit{
		Name:           "Laura Ortiz",
		EmployeeNumber: "M1001",
		ExpiresAt:      time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		ArtifactURL:    "https://files.example.com/permits/abc.pdf",
	}
	payload := QRPayload(p)
	for _, line := range []string{"Nombre: Laura Ortiz", "Empleado: M1001", "Fecha: 2025-03-15"} {
		if !strings.Contains(payload, line) {
			t.Errorf("payload missing %q:\n%s", line, payload)
		}
	}
	m := artifactURLRe.FindStringSubmatch(payload)
	if m == nil || m[1] != p.ArtifactURL {
		t.Fatalf("scan regex did not recover artifact url from payload:\n%s", payload)
	}
}

func TestGenerateQRProducesDataURL(t *testing.T) {
	p := model.Permit{
		Name:           "Laura Ortiz",
		EmployeeNumber: "M1001",
		ExpiresAt:      time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		ArtifactURL:    "https://files.example.com/permits/abc.pdf",
	}
	data, err := GenerateQR(p)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(data, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %.40s", data)
	}
	if len(data) < 100 {
		t.Fatalf("suspiciously small qr payload: %d bytes", len(data))
	}
}
