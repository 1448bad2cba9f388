package render

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ukydev/oilchange-tracker/internal/backup"
	"github.com/ukydev/oilchange-tracker/internal/models"
	"github.com/ukydev/oilchange-tracker/internal/records"
)

// Tabs of the main page.
const (
	TabMaintenance = "maintenance"
	TabWarranties  = "warranties"
	TabBackup      = "backup"
)

// Branding is the shop identity printed on pages and certificates.
type Branding struct {
	Name     string `yaml:"name" json:"name"`
	Subtitle string `yaml:"subtitle" json:"subtitle"`
	Logo     string `yaml:"logo" json:"logo"`
	Footer   string `yaml:"footer" json:"footer"`
	// Signature is printed under the shop's signature block.
	Signature string `yaml:"signature" json:"signature"`
}

// DefaultBranding returns the built-in shop identity.
func DefaultBranding() Branding {
	return Branding{
		Name:      "Box Motors",
		Subtitle:  "Controle de Trocas de Óleo e Garantias",
		Logo:      "/static/logo.svg",
		Footer:    "© 2025 Sistema de Controle",
		Signature: "BOX MOTORS",
	}
}

// withDefaults fills empty fields from DefaultBranding.
func (b Branding) withDefaults() Branding {
	def := DefaultBranding()
	if b.Name == "" {
		b.Name = def.Name
	}
	if b.Subtitle == "" {
		b.Subtitle = def.Subtitle
	}
	if b.Logo == "" {
		b.Logo = def.Logo
	}
	if b.Footer == "" {
		b.Footer = def.Footer
	}
	if b.Signature == "" {
		b.Signature = def.Signature
	}
	return b
}

// State is everything the main page is derived from.
type State struct {
	Today        models.Date
	Maintenance  []records.ScheduledMaintenance
	Warranties   []records.TrackedWarranty
	IntervalDays int
	Backup       *backup.Info

	Tab    string
	Notice string
	Alert  string

	// Submitted form values, echoed back when validation fails.
	MaintenanceForm models.MaintenanceInput
	WarrantyForm    models.WarrantyInput
}

// MaintenanceCard is one scheduled oil change as displayed.
type MaintenanceCard struct {
	ID          string
	Client      string
	Vehicle     string
	Odometer    string
	ServiceDate string
	NextDue     string
	Phone       string
	Address     string
	Notified    bool
	StatusClass string
	Icon        string
	DaysPhrase  string
	NotifyURL   string
	DeleteURL   string
}

// HasContact reports whether the card shows a contact block.
func (c MaintenanceCard) HasContact() bool { return c.Phone != "" || c.Address != "" }

// WarrantyCard is one warranty as displayed.
type WarrantyCard struct {
	ID             string
	Client         string
	Vehicle        string
	Phone          string
	ServiceDate    string
	Expiry         string
	Service        string
	Period         string
	Value          string
	StatusClass    string
	StatusIcon     string
	StatusLabel    string
	DaysPhrase     string
	CertificateURL string
	DeleteURL      string
}

// BackupCard summarizes what an export would contain.
type BackupCard struct {
	Date       string
	Time       string
	OilChanges int
	Warranties int
	Size       string
}

// Page is the view model of the main document.
type Page struct {
	Branding     Branding
	Tab          string
	Notice       string
	Alert        string
	Today        string
	IntervalDays int
	Offline      bool

	Maintenance []MaintenanceCard
	Warranties  []WarrantyCard
	Backup      *BackupCard

	MaintenanceForm models.MaintenanceInput
	WarrantyForm    models.WarrantyInput
}

// BuildPage projects st onto the page view model.
func BuildPage(st State, b Branding) Page {
	p := Page{
		Branding:        b.withDefaults(),
		Tab:             st.Tab,
		Notice:          st.Notice,
		Alert:           st.Alert,
		Today:           st.Today.String(),
		IntervalDays:    st.IntervalDays,
		Maintenance:     make([]MaintenanceCard, 0, len(st.Maintenance)),
		Warranties:      make([]WarrantyCard, 0, len(st.Warranties)),
		MaintenanceForm: st.MaintenanceForm,
		WarrantyForm:    st.WarrantyForm,
	}
	switch p.Tab {
	case TabMaintenance, TabWarranties, TabBackup:
	default:
		p.Tab = TabMaintenance
	}
	for _, sm := range st.Maintenance {
		p.Maintenance = append(p.Maintenance, maintenanceCard(sm))
	}
	for _, tw := range st.Warranties {
		p.Warranties = append(p.Warranties, WarrantyCardOf(tw))
	}
	if st.Backup != nil {
		p.Backup = backupCard(*st.Backup)
	}
	return p
}

func maintenanceCard(sm records.ScheduledMaintenance) MaintenanceCard {
	r := sm.Record
	id := url.PathEscape(r.ID.String())
	class := string(sm.Status)
	if sm.Status == models.MaintenanceNormal {
		class = ""
	}
	return MaintenanceCard{
		ID:          r.ID.String(),
		Client:      r.ClientName,
		Vehicle:     r.Vehicle,
		Odometer:    FormatKm(r.Odometer),
		ServiceDate: FormatDate(r.ServiceDate),
		NextDue:     FormatDate(r.NextDueDate),
		Phone:       r.Phone,
		Address:     r.Address,
		Notified:    r.Notified,
		StatusClass: class,
		Icon:        MaintenanceIcon(sm.Status),
		DaysPhrase:  DaysPhrase(sm.DaysRemaining),
		NotifyURL:   fmt.Sprintf("/maintenance/%s/notified", id),
		DeleteURL:   fmt.Sprintf("/maintenance/%s/delete", id),
	}
}

// WarrantyCardOf projects one tracked warranty.
func WarrantyCardOf(tw records.TrackedWarranty) WarrantyCard {
	r := tw.Record
	id := url.PathEscape(r.ID.String())
	icon, label := WarrantyLabel(tw.Status)
	phone := r.Phone
	if phone == "" {
		phone = "—"
	}
	return WarrantyCard{
		ID:             r.ID.String(),
		Client:         r.ClientName,
		Vehicle:        r.Vehicle,
		Phone:          phone,
		ServiceDate:    FormatDate(r.ServiceDate),
		Expiry:         FormatDate(r.ExpiryDate),
		Service:        r.Service,
		Period:         PeriodPhrase(r.WarrantyDays),
		Value:          FormatMoney(r.Value),
		StatusClass:    string(tw.Status),
		StatusIcon:     icon,
		StatusLabel:    label,
		DaysPhrase:     DaysPhrase(tw.DaysRemaining),
		CertificateURL: fmt.Sprintf("/warranties/%s/certificate", id),
		DeleteURL:      fmt.Sprintf("/warranties/%s/delete", id),
	}
}

func backupCard(info backup.Info) *BackupCard {
	at := info.GeneratedAt
	return &BackupCard{
		Date:       FormatShortDate(models.DateOf(at)),
		Time:       at.Format(time.TimeOnly),
		OilChanges: info.OilChanges,
		Warranties: info.Warranties,
		Size:       FormatSize(info.SizeBytes),
	}
}

// FormatSize renders a byte count in kilobytes: "1,25 KB".
func FormatSize(n int) string {
	return printer.Sprintf("%.2f KB", float64(n)/1024)
}
