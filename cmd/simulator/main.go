package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// Demo data for realistic shop records
var (
	firstNames = []string{"Ana", "Bruno", "Carla", "Diego", "Eduarda", "Felipe", "Gabriela", "Henrique", "Isabela", "João", "Larissa", "Marcos"}
	lastNames  = []string{"Silva", "Santos", "Oliveira", "Souza", "Lima", "Pereira", "Costa", "Ferreira", "Almeida", "Ribeiro"}
	vehicles   = []string{"Fiat Uno", "VW Gol", "Chevrolet Onix", "Fiat Strada", "Hyundai HB20", "Renault Kwid", "Toyota Corolla", "Honda Civic", "Jeep Renegade", "Ford Ka"}
	streets    = []string{"Rua das Flores", "Av. Brasil", "Rua XV de Novembro", "Av. Paulista", "Rua São João", "Rua do Comércio"}
	services   = []string{"Troca de embreagem", "Revisão de freios", "Alinhamento e balanceamento", "Troca de amortecedores", "Retífica de motor", "Troca de correia dentada"}

	warrantyDays = []int{30, 60, 90, 180}
)

const dateLayout = "2006-01-02"

func randomName() string {
	return firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))]
}

func randomPhone() string {
	return fmt.Sprintf("(%02d) 9%04d-%04d", 11+rand.Intn(89), rand.Intn(10000), rand.Intn(10000))
}

// randomMaintenanceForm builds an oil change serviced within the last 40
// days, so the schedule shows every status tier.
func randomMaintenanceForm(now time.Time) url.Values {
	form := url.Values{
		"clientName":  {randomName()},
		"vehicle":     {vehicles[rand.Intn(len(vehicles))]},
		"odometer":    {strconv.Itoa(5000 + rand.Intn(195000))},
		"serviceDate": {now.AddDate(0, 0, -rand.Intn(40)).Format(dateLayout)},
	}
	if rand.Intn(3) > 0 {
		form.Set("phone", randomPhone())
	}
	if rand.Intn(2) == 0 {
		form.Set("address", fmt.Sprintf("%s, %d", streets[rand.Intn(len(streets))], 1+rand.Intn(2000)))
	}
	return form
}

// randomWarrantyForm builds a warranty issued within the last 120 days.
func randomWarrantyForm(now time.Time) url.Values {
	value := 80 + rand.Float64()*2500
	return url.Values{
		"clientName":   {randomName()},
		"vehicle":      {vehicles[rand.Intn(len(vehicles))]},
		"phone":        {randomPhone()},
		"serviceDate":  {now.AddDate(0, 0, -rand.Intn(120)).Format(dateLayout)},
		"warrantyDays": {strconv.Itoa(warrantyDays[rand.Intn(len(warrantyDays))])},
		"service":      {services[rand.Intn(len(services))]},
		"value":        {strings.Replace(strconv.FormatFloat(value, 'f', 2, 64), ".", ",", 1)},
	}
}

var client = &http.Client{
	Timeout: 10 * time.Second,
	// The tracker answers a saved form with a redirect to the page.
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func postForm(ctx context.Context, baseURL, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		return fmt.Errorf("post %s failed with status: %d", path, resp.StatusCode)
	}
	return nil
}

// simulate posts count random records, one per tick, and returns how many
// the tracker accepted.
func simulate(ctx context.Context, baseURL string, count int, interval time.Duration) int {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	sent := 0
	for i := 0; i < count; i++ {
		now := time.Now()
		path, form := "/maintenance", randomMaintenanceForm(now)
		if rand.Intn(3) == 0 {
			path, form = "/warranties", randomWarrantyForm(now)
		}
		if err := postForm(ctx, baseURL, path, form); err != nil {
			log.WithError(err).Error("Failed to create record")
		} else {
			sent++
			log.WithFields(log.Fields{
				"path":    path,
				"client":  form.Get("clientName"),
				"vehicle": form.Get("vehicle"),
			}).Info("Created record")
		}

		select {
		case <-ctx.Done():
			return sent
		case <-tick.C:
		}
	}
	return sent
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			return n
		}
	}
	return def
}

func main() {
	baseURL := os.Getenv("SIM_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	count := envInt("SIM_RECORDS", 20)
	interval := time.Duration(envInt("SIM_INTERVAL_MS", 200)) * time.Millisecond

	log.WithFields(log.Fields{
		"records":  count,
		"base_url": baseURL,
		"interval": interval,
	}).Info("Starting shop simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sent := simulate(ctx, baseURL, count, interval)
	log.WithField("created_records", sent).Info("Simulation completed")
	if sent == 0 {
		log.Error("No records created. Ensure the tracker is reachable.")
		os.Exit(1)
	}
}
