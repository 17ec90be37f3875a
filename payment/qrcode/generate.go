package qrcode

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

const size = 256

// PNG renders a payment URI as a QR code image.
func PNG(uri string) ([]byte, error) {
	return qrcode.Encode(uri, qrcode.Medium, size)
}

// DataURL renders a payment URI as a base64 data: URL, ready to embed.
func DataURL(uri string) (string, error) {
	png, err := PNG(uri)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
