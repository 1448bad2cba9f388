package backup

import (
	"bytes"
	"encoding/json"

	"github.com/ukydev/oilchange-tracker/internal/models"
)

const invalidFormat = "formato de backup inválido"

// rawDocument keeps the collections undecoded so that missing and null
// values can be told apart from empty arrays.
type rawDocument struct {
	Version    json.RawMessage `json:"version"`
	Versao     json.RawMessage `json:"versao"`
	OilChanges json.RawMessage `json:"oilChanges"`
	Warranties json.RawMessage `json:"warranties"`
}

// Parse validates a backup document and decodes both collections. It
// accepts documents written by this program and by the older browser
// edition, whose documents carry "versao" and Portuguese record keys.
func Parse(data []byte) ([]models.MaintenanceRecord, []models.WarrantyRecord, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, &ImportError{Reason: "o arquivo não é um JSON válido", Err: err}
	}

	legacy := false
	switch {
	case present(raw.Version):
	case present(raw.Versao):
		legacy = true
	default:
		return nil, nil, &ImportError{Reason: invalidFormat + " (versão ausente)"}
	}
	if !present(raw.OilChanges) {
		return nil, nil, &ImportError{Reason: invalidFormat + " (oilChanges ausente)"}
	}
	if !present(raw.Warranties) {
		return nil, nil, &ImportError{Reason: invalidFormat + " (warranties ausente)"}
	}

	if legacy {
		return parseLegacy(raw)
	}

	oil := []models.MaintenanceRecord{}
	if err := json.Unmarshal(raw.OilChanges, &oil); err != nil {
		return nil, nil, &ImportError{Reason: invalidFormat + " (oilChanges)", Err: err}
	}
	war := []models.WarrantyRecord{}
	if err := json.Unmarshal(raw.Warranties, &war); err != nil {
		return nil, nil, &ImportError{Reason: invalidFormat + " (warranties)", Err: err}
	}
	return oil, war, nil
}

// present reports whether a field was given a truthy value.
func present(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return false
	}
	switch string(v) {
	case "null", `""`, "false", "0":
		return false
	}
	return true
}
