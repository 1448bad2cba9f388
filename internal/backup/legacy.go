package backup

import (
	"encoding/json"

	"github.com/ukydev/oilchange-tracker/internal/models"
)

// Record shapes of the browser edition.
type legacyMaintenance struct {
	ID          models.RecordID `json:"id"`
	Cliente     string          `json:"cliente"`
	Veiculo     string          `json:"veiculo"`
	Km          int             `json:"km"`
	DataTroca   models.Date     `json:"data_troca"`
	DataProxima models.Date     `json:"data_proxima"`
	Telefone    string          `json:"telefone"`
	Endereco    string          `json:"endereco"`
	Avisado     bool            `json:"avisado"`
	CriadoEm    models.Date     `json:"criado_em"`
}

type legacyWarranty struct {
	ID             models.RecordID `json:"id"`
	Cliente        string          `json:"cliente"`
	Veiculo        string          `json:"veiculo"`
	Telefone       string          `json:"telefone"`
	DataServico    models.Date     `json:"data_servico"`
	DiasGarantia   int             `json:"dias_garantia"`
	DataVencimento models.Date     `json:"data_vencimento"`
	Servico        string          `json:"servico"`
	Valor          float64         `json:"valor"`
	CriadoEm       models.Date     `json:"criado_em"`
}

func parseLegacy(raw rawDocument) ([]models.MaintenanceRecord, []models.WarrantyRecord, error) {
	var lm []legacyMaintenance
	if err := json.Unmarshal(raw.OilChanges, &lm); err != nil {
		return nil, nil, &ImportError{Reason: invalidFormat + " (oilChanges)", Err: err}
	}
	var lw []legacyWarranty
	if err := json.Unmarshal(raw.Warranties, &lw); err != nil {
		return nil, nil, &ImportError{Reason: invalidFormat + " (warranties)", Err: err}
	}

	oil := make([]models.MaintenanceRecord, 0, len(lm))
	for _, r := range lm {
		oil = append(oil, models.MaintenanceRecord{
			ID:          r.ID,
			ClientName:  r.Cliente,
			Vehicle:     r.Veiculo,
			Odometer:    r.Km,
			ServiceDate: r.DataTroca,
			NextDueDate: r.DataProxima,
			Phone:       r.Telefone,
			Address:     r.Endereco,
			Notified:    r.Avisado,
			CreatedAt:   r.CriadoEm,
		})
	}
	war := make([]models.WarrantyRecord, 0, len(lw))
	for _, r := range lw {
		war = append(war, models.WarrantyRecord{
			ID:           r.ID,
			ClientName:   r.Cliente,
			Vehicle:      r.Veiculo,
			Phone:        r.Telefone,
			ServiceDate:  r.DataServico,
			WarrantyDays: r.DiasGarantia,
			ExpiryDate:   r.DataVencimento,
			Service:      r.Servico,
			Value:        r.Valor,
			CreatedAt:    r.CriadoEm,
		})
	}
	return oil, war, nil
}
