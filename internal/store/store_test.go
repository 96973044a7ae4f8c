package store

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/wxtd/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func testObservation(at time.Time) models.Observation {
	return models.Observation{
		DateTime:   at.Unix(),
		UnitSystem: models.UnitsMetric,
		StationID:  sql.NullInt64{Int64: 0, Valid: true},
		WindSpeed:  nf(2.2),
		WindDir:    nf(90),
		OutTemp:    nf(21.2),
		Pressure:   nf(1013.2),
	}
}

func TestInsertAndLatestObservation(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now()
	older := testObservation(now.Add(-10 * time.Minute))
	newer := testObservation(now)
	newer.OutTemp = nf(22.4)
	newer.Rain = nf(0.05)
	newer.QualityFlags = `["precip_negative"]`

	if err := store.InsertObservation(older); err != nil {
		t.Fatalf("InsertObservation: %v", err)
	}
	if err := store.InsertObservation(newer); err != nil {
		t.Fatalf("InsertObservation: %v", err)
	}

	got, err := store.LatestObservation()
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got == nil {
		t.Fatal("LatestObservation returned nil")
	}
	if got.DateTime != newer.DateTime {
		t.Errorf("DateTime = %d, want %d", got.DateTime, newer.DateTime)
	}
	if !got.OutTemp.Valid || got.OutTemp.Float64 != 22.4 {
		t.Errorf("OutTemp = %+v, want 22.4", got.OutTemp)
	}
	if !got.Rain.Valid || got.Rain.Float64 != 0.05 {
		t.Errorf("Rain = %+v, want 0.05", got.Rain)
	}
	if got.QualityFlags != `["precip_negative"]` {
		t.Errorf("QualityFlags = %q", got.QualityFlags)
	}
	if got.OutHumidity.Valid {
		t.Errorf("OutHumidity = %+v, want null", got.OutHumidity)
	}
}

func TestLatestObservation_Empty(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.LatestObservation()
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got != nil {
		t.Errorf("LatestObservation = %+v, want nil on empty table", got)
	}
}

func TestObservationsRange(t *testing.T) {
	store := setupTestStore(t)

	base := time.Now().Truncate(time.Hour)
	for _, offset := range []time.Duration{-3 * time.Hour, -90 * time.Minute, -10 * time.Minute} {
		if err := store.InsertObservation(testObservation(base.Add(offset))); err != nil {
			t.Fatalf("InsertObservation: %v", err)
		}
	}

	got, err := store.Observations(base.Add(-2*time.Hour), base)
	if err != nil {
		t.Fatalf("Observations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(observations) = %d, want 2", len(got))
	}
	if got[0].DateTime > got[1].DateTime {
		t.Error("observations not ordered by time ascending")
	}
}

func TestTodayStats(t *testing.T) {
	store := setupTestStore(t)

	dayStart := time.Now().Add(-6 * time.Hour)

	cold := testObservation(dayStart.Add(1 * time.Hour))
	cold.OutTemp = nf(4.5)
	cold.Rain = nf(0.2)
	cold.WindSpeedMax = nf(12.0)

	warm := testObservation(dayStart.Add(4 * time.Hour))
	warm.OutTemp = nf(18.3)
	warm.Rain = nf(0.3)
	warm.WindSpeedMax = nf(7.5)

	yesterday := testObservation(dayStart.Add(-2 * time.Hour))
	yesterday.OutTemp = nf(-5.0)
	yesterday.Rain = nf(9.9)

	for _, obs := range []models.Observation{cold, warm, yesterday} {
		if err := store.InsertObservation(obs); err != nil {
			t.Fatalf("InsertObservation: %v", err)
		}
	}

	st, err := store.TodayStats(dayStart)
	if err != nil {
		t.Fatalf("TodayStats: %v", err)
	}
	if !st.MinTemp.Valid || st.MinTemp.Float64 != 4.5 {
		t.Errorf("MinTemp = %+v, want 4.5", st.MinTemp)
	}
	if !st.MaxTemp.Valid || st.MaxTemp.Float64 != 18.3 {
		t.Errorf("MaxTemp = %+v, want 18.3", st.MaxTemp)
	}
	if !st.RainTotal.Valid || st.RainTotal.Float64 != 0.5 {
		t.Errorf("RainTotal = %+v, want 0.5", st.RainTotal)
	}
	if !st.MaxWind.Valid || st.MaxWind.Float64 != 12.0 {
		t.Errorf("MaxWind = %+v, want 12.0", st.MaxWind)
	}
}

func TestTodayStats_Empty(t *testing.T) {
	store := setupTestStore(t)

	st, err := store.TodayStats(time.Now())
	if err != nil {
		t.Fatalf("TodayStats: %v", err)
	}
	if st.MinTemp.Valid || st.RainTotal.Valid {
		t.Errorf("stats = %+v, want all null on empty table", st)
	}
}

func TestPruneBefore(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now()
	for _, offset := range []time.Duration{-72 * time.Hour, -48 * time.Hour, -1 * time.Hour} {
		if err := store.InsertObservation(testObservation(now.Add(offset))); err != nil {
			t.Fatalf("InsertObservation: %v", err)
		}
	}

	deleted, err := store.PruneBefore(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	remaining, err := store.Observations(now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("Observations: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("len(remaining) = %d, want 1", len(remaining))
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if err := store.InsertObservation(testObservation(time.Now())); err != nil {
		t.Fatalf("InsertObservation after re-migrate: %v", err)
	}
}
