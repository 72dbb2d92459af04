// simulate hammers the booking API with concurrent workers that all race for
// the same practitioners' slots, then verifies in Postgres that no overlapping
// non-cancelled appointments were created. It exists to demonstrate the
// exclusion constraint and the re-check-then-write validator under load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/serenbook/booking-service/internal/config"
	"github.com/serenbook/booking-service/internal/db"
)

type SimConfig struct {
	APIBaseURL        string
	Duration          time.Duration
	Workers           int
	PractitionerLimit int
	PatientLimit      int
	DaysAhead         int
	ServiceMinutes    int
	PostgresDSN       string
}

type DataPool struct {
	Practitioners []uuid.UUID
	Patients      []uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p95
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	slots   OperationMetrics
	booking OperationMetrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()
	if cfg.Workers <= 0 || cfg.Duration <= 0 {
		log.Fatal("SIM_WORKERS and SIM_DURATION must be > 0")
	}

	log.Printf("config: duration=%s workers=%d practitioners=%d days_ahead=%d",
		cfg.Duration, cfg.Workers, cfg.PractitionerLimit, cfg.DaysAhead)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d practitioners, %d patients",
		len(dataPool.Practitioners), len(dataPool.Patients))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()

	if err := verifyNoOverlaps(context.Background(), pgPool); err != nil {
		log.Fatalf("OVERLAP CHECK FAILED: %v", err)
	}
	log.Println("overlap check passed: no double-bookings")
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:        getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:          getSimDuration("SIM_DURATION", 30*time.Second),
		Workers:           getInt("SIM_WORKERS", 20),
		PractitionerLimit: getInt("SIM_PRACTITIONER_LIMIT", 5),
		PatientLimit:      getInt("SIM_PATIENT_LIMIT", 1000),
		DaysAhead:         getInt("SIM_DAYS_AHEAD", 3),
		ServiceMinutes:    getInt("SIM_SERVICE_MINUTES", 50),
		PostgresDSN:       baseCfg.PostgresDSN,
	}
}

// A small practitioner pool maximises contention on the same slots.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT practitioner_id FROM working_hours LIMIT $1
	`, cfg.PractitionerLimit)
	if err != nil {
		return nil, fmt.Errorf("load practitioners: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Practitioners = append(dataPool.Practitioners, id)
	}

	rows, err = pool.Query(ctx, `
		SELECT id FROM patients LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}

	if len(dataPool.Practitioners) == 0 {
		return nil, fmt.Errorf("no practitioners with working hours loaded")
	}
	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		practitionerID := s.pool.Practitioners[rng.Intn(len(s.pool.Practitioners))]
		patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
		date := time.Now().AddDate(0, 0, 1+rng.Intn(s.config.DaysAhead)).Format("2006-01-02")

		slotTime, ok := s.fetchAvailableSlot(ctx, rng, practitionerID, date)
		if !ok {
			continue
		}

		s.bookSlot(ctx, practitionerID, patientID, date, slotTime)
	}
}

type slotListResponse struct {
	Slots []struct {
		Time   string `json:"time"`
		Status string `json:"status"`
	} `json:"slots"`
}

func (s *Simulator) fetchAvailableSlot(ctx context.Context, rng *rand.Rand, practitionerID uuid.UUID, date string) (string, bool) {
	url := fmt.Sprintf("%s/practitioners/%s/slots?date=%s&duration=%d",
		s.config.APIBaseURL, practitionerID, date, s.config.ServiceMinutes)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.slots.Record(latency, false, false)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		s.slots.Record(latency, false, false)
		return "", false
	}

	var list slotListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		s.slots.Record(latency, false, false)
		return "", false
	}
	s.slots.Record(latency, true, false)

	var available []string
	for _, slot := range list.Slots {
		if slot.Status == "available" {
			available = append(available, slot.Time)
		}
	}
	if len(available) == 0 {
		return "", false
	}

	return available[rng.Intn(len(available))], true
}

func (s *Simulator) bookSlot(ctx context.Context, practitionerID, patientID uuid.UUID, date, slotTime string) {
	body, _ := json.Marshal(map[string]any{
		"practitioner_id":  practitionerID.String(),
		"patient_id":       patientID.String(),
		"date":             date,
		"time":             slotTime,
		"duration_minutes": s.config.ServiceMinutes,
		"status":           "confirmed",
	})

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.booking.Record(latency, false, false)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated:
		s.booking.Record(latency, true, false)
	case http.StatusConflict:
		s.booking.Record(latency, false, true)
	default:
		s.booking.Record(latency, false, false)
	}
}

// verifyNoOverlaps is the ground truth check: two non-cancelled appointments
// for the same practitioner and date whose minute ranges intersect.
func verifyNoOverlaps(ctx context.Context, pool *pgxpool.Pool) error {
	row := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.practitioner_id = b.practitioner_id
		 AND a.date = b.date
		 AND a.id < b.id
		 AND a.status <> 'cancelled'
		 AND b.status <> 'cancelled'
		 AND a.start_minute < b.start_minute + b.duration_minutes
		 AND b.start_minute < a.start_minute + a.duration_minutes
	`)

	var overlapping int
	if err := row.Scan(&overlapping); err != nil {
		return fmt.Errorf("overlap query: %w", err)
	}
	if overlapping > 0 {
		return fmt.Errorf("%d overlapping appointment pairs found", overlapping)
	}
	return nil
}

func (s *Simulator) PrintReport() {
	printOperationReport("slot query", &s.slots)
	printOperationReport("booking", &s.booking)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		log.Printf("%s: no operations", name)
		return
	}

	avg, min, max, p95 := om.Stats()
	log.Printf("%s: total=%d success=%d conflict=%d error=%d avg=%s min=%s max=%s p95=%s",
		name, total,
		atomic.LoadInt64(&om.Success),
		atomic.LoadInt64(&om.Conflict),
		atomic.LoadInt64(&om.Error),
		avg, min, max, p95)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getSimDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
