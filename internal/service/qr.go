package service

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// QRPayload renders the text encoded into a permit's QR code.  The format
// is line-oriented so guards can eyeball the content with any scanner app;
// ScanQR only depends on the PDF line.
func QRPayload(p model.Permit) string {
	return fmt.Sprintf("Nombre: %s\nEmpleado: %s\nFecha: %s\nPDF: %s",
		p.Name, p.EmployeeNumber, p.ExpiresAt.UTC().Format("2006-01-02"), p.ArtifactURL)
}

// GenerateQR encodes the permit payload as a 256x256 PNG and returns it as
// an inline data URL, ready to embed in a response or an email without a
// separate image endpoint.
func GenerateQR(p model.Permit) (string, error) {
	png, err := qrcode.Encode(QRPayload(p), qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
