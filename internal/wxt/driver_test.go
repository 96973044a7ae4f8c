package wxt

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/lox/wxtd/internal/models"
)

// fakeTransport plays back a scripted sequence of sessions, one per Open.
type fakeTransport struct {
	script []func() (io.ReadCloser, error)
	calls  int
}

func (f *fakeTransport) Open() (io.ReadCloser, error) {
	i := f.calls
	f.calls++
	if i >= len(f.script) {
		return nil, errors.New("transport script exhausted")
	}
	return f.script[i]()
}

func sessionWith(data string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(data)), nil
	}
}

func sessionErr(err error) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return nil, err }
}

type trackedSession struct {
	io.Reader
	closed *bool
}

func (s *trackedSession) Close() error {
	*s.closed = true
	return nil
}

const windLine = "0R1,Dn=045#,Dm=090#,Dx=180#,Sn=1.1M,Sm=2.2M,Sx=3.3M\r\n"

func TestDriverNext_Wind(t *testing.T) {
	ft := &fakeTransport{script: []func() (io.ReadCloser, error){sessionWith(windLine)}}
	d := NewDriver(ft, Config{RetryWait: 0})

	obs, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if obs.UnitSystem != "metric" {
		t.Errorf("UnitSystem = %q, want metric", obs.UnitSystem)
	}
	if obs.DateTime == 0 {
		t.Error("DateTime not set")
	}
	if !obs.WindSpeed.Valid || obs.WindSpeed.Float64 != 2.2 {
		t.Errorf("WindSpeed = %+v, want 2.2", obs.WindSpeed)
	}
	if !obs.WindDir.Valid || obs.WindDir.Float64 != 90 {
		t.Errorf("WindDir = %+v, want 90", obs.WindDir)
	}
	if !obs.WindSpeedMax.Valid || obs.WindSpeedMax.Float64 != 3.3 {
		t.Errorf("WindSpeedMax = %+v, want 3.3", obs.WindSpeedMax)
	}
	if !obs.StationID.Valid || obs.StationID.Int64 != 0 {
		t.Errorf("StationID = %+v, want 0", obs.StationID)
	}
}

func TestDriverNext_ZeroSpeedNullsDirection(t *testing.T) {
	ft := &fakeTransport{script: []func() (io.ReadCloser, error){
		sessionWith("0R1,Dm=090#,Sm=0.0M\r\n"),
	}}
	d := NewDriver(ft, Config{RetryWait: 0})

	obs, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !obs.WindSpeed.Valid || obs.WindSpeed.Float64 != 0 {
		t.Errorf("WindSpeed = %+v, want valid 0", obs.WindSpeed)
	}
	if obs.WindDir.Valid {
		t.Errorf("WindDir = %+v, want null at zero speed", obs.WindDir)
	}
}

func TestDriverNext_RainDelta(t *testing.T) {
	ft := &fakeTransport{script: []func() (io.ReadCloser, error){
		sessionWith("0R3,Rc=10.00M\r\n"),
		sessionWith("0R3,Rc=10.05M\r\n"),
		sessionWith("0R3,Rc=9.00M\r\n"),
	}}
	d := NewDriver(ft, Config{RetryWait: 0})
	ctx := context.Background()

	first, err := d.Next(ctx)
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if first.Rain.Valid {
		t.Errorf("first Rain = %+v, want null before a baseline exists", first.Rain)
	}

	second, err := d.Next(ctx)
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if !second.Rain.Valid || math.Abs(second.Rain.Float64-0.05) > 1e-9 {
		t.Errorf("second Rain = %+v, want 0.05", second.Rain)
	}

	// A counter rollback passes through as a negative delta but gets flagged.
	third, err := d.Next(ctx)
	if err != nil {
		t.Fatalf("third Next: %v", err)
	}
	if !third.Rain.Valid || math.Abs(third.Rain.Float64-(-1.05)) > 1e-9 {
		t.Errorf("third Rain = %+v, want -1.05", third.Rain)
	}
	if !strings.Contains(third.QualityFlags, FlagPrecipNegative) {
		t.Errorf("QualityFlags = %q, want %q present", third.QualityFlags, FlagPrecipNegative)
	}
}

func TestDriverNext_RetriesExceeded(t *testing.T) {
	fail := sessionErr(errors.New("port unavailable"))
	ft := &fakeTransport{script: []func() (io.ReadCloser, error){fail, fail, fail, fail}}
	d := NewDriver(ft, Config{MaxTries: 3, RetryWait: 0})

	_, err := d.Next(context.Background())
	if !errors.Is(err, ErrRetriesExceeded) {
		t.Fatalf("err = %v, want ErrRetriesExceeded", err)
	}
	if ft.calls != 3 {
		t.Errorf("open calls = %d, want 3", ft.calls)
	}
}

func TestDriverNext_RecoversWithinBudget(t *testing.T) {
	fail := sessionErr(errors.New("port unavailable"))
	ft := &fakeTransport{script: []func() (io.ReadCloser, error){fail, fail, sessionWith(windLine)}}
	d := NewDriver(ft, Config{MaxTries: 3, RetryWait: 0})

	obs, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !obs.WindSpeed.Valid {
		t.Error("expected a decoded observation after recovery")
	}
	if ft.calls != 3 {
		t.Errorf("open calls = %d, want 3", ft.calls)
	}
}

func TestDriverNext_BudgetResetsAfterSuccess(t *testing.T) {
	fail := sessionErr(errors.New("port unavailable"))
	ft := &fakeTransport{script: []func() (io.ReadCloser, error){
		fail, sessionWith(windLine),
		fail, sessionWith(windLine),
	}}
	d := NewDriver(ft, Config{MaxTries: 2, RetryWait: 0})
	ctx := context.Background()

	// Each call may fail once and still succeed; the failure from the first
	// call must not count against the second.
	for i := 0; i < 2; i++ {
		if _, err := d.Next(ctx); err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
	}
	if ft.calls != 4 {
		t.Errorf("open calls = %d, want 4", ft.calls)
	}
}

func TestDriverNext_SkipsInvalidFrames(t *testing.T) {
	ft := &fakeTransport{script: []func() (io.ReadCloser, error){
		sessionWith("$GPGGA,noise\r\n\r\n0R2,Ta=21.2C\r\n"),
	}}
	d := NewDriver(ft, Config{MaxTries: 1, RetryWait: 0})

	obs, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !obs.OutTemp.Valid || obs.OutTemp.Float64 != 21.2 {
		t.Errorf("OutTemp = %+v, want 21.2", obs.OutTemp)
	}
	if ft.calls != 1 {
		t.Errorf("open calls = %d, want 1: line noise must not consume attempts", ft.calls)
	}
}

func TestDriverNext_ClosesSession(t *testing.T) {
	var okClosed, badClosed bool
	ft := &fakeTransport{script: []func() (io.ReadCloser, error){
		func() (io.ReadCloser, error) {
			return &trackedSession{Reader: strings.NewReader(windLine), closed: &okClosed}, nil
		},
		func() (io.ReadCloser, error) {
			return &trackedSession{Reader: strings.NewReader("0R1,Sm=M\r\n"), closed: &badClosed}, nil
		},
	}}
	d := NewDriver(ft, Config{MaxTries: 1, RetryWait: 0})
	ctx := context.Background()

	if _, err := d.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !okClosed {
		t.Error("session not closed after success")
	}

	if _, err := d.Next(ctx); err == nil {
		t.Fatal("expected decode failure")
	}
	if !badClosed {
		t.Error("session not closed after decode failure")
	}
}

func TestDriverNext_Legacy(t *testing.T) {
	ft := &fakeTransport{script: []func() (io.ReadCloser, error){
		sessionWith(legacyTestFrame + "\r"),
	}}
	d := NewDriver(ft, Config{Protocol: ProtocolLegacy, RetryWait: 0})

	obs, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if obs.UnitSystem != "us" {
		t.Errorf("UnitSystem = %q, want us", obs.UnitSystem)
	}
	if !obs.OutTemp.Valid || math.Abs(obs.OutTemp.Float64-74.7) > 1e-9 {
		t.Errorf("OutTemp = %+v, want 74.7", obs.OutTemp)
	}
	if !obs.DayOfYear.Valid || obs.DayOfYear.Int64 != 37 {
		t.Errorf("DayOfYear = %+v, want 37", obs.DayOfYear)
	}
	// Calm frame: direction is meaningless at zero speed.
	if obs.WindDir.Valid {
		t.Errorf("WindDir = %+v, want null at zero speed", obs.WindDir)
	}
}

func TestDriverStream_Cancel(t *testing.T) {
	ft := &fakeTransport{}
	for i := 0; i < 16; i++ {
		ft.script = append(ft.script, sessionWith(windLine))
	}
	d := NewDriver(ft, Config{RetryWait: 0})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan *models.Observation)
	errc := make(chan error, 1)
	go func() { errc <- d.Stream(ctx, out) }()

	select {
	case obs := <-out:
		if obs == nil {
			t.Fatal("nil observation from stream")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first observation")
	}

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Stream returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}
