package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/genecheck/internal/table"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

type memoryRunStore struct {
	mu   sync.Mutex
	runs []Run
	err  error
}

func (m *memoryRunStore) Record(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memoryRunStore) Get(_ context.Context, id uuid.UUID) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == id {
			r := m.runs[i]
			return &r, nil
		}
	}
	return nil, ErrRunNotFound
}

func (m *memoryRunStore) List(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return append([]Run(nil), m.runs[:limit]...), nil
}

const passingCSV = "id,ABC-1,DEF-2\n,GENE,GENE\n1,a,b\n2,c,d\n"
const interGenicCSV = "id,ABC-1,DEF-2\n,GENE,GENE\n1,p,q\n2,q,r\n"

func newTestService(store RunStore) *Service {
	return NewService(ServiceConfig{
		Validator: NewValidator(ValidatorConfig{Logger: discardLogger()}),
		Limiter:   NewLimiter(1, 50*time.Millisecond),
		Runs:      store,
		Logger:    discardLogger(),
	})
}

func TestService_ValidatePasses(t *testing.T) {
	store := &memoryRunStore{}
	svc := newTestService(store)
	ctx := ContextWithOrigin(context.Background(), "cli")

	run, err := svc.Validate(ctx, ValidateRequest{Name: "ref.csv", Source: strings.NewReader(passingCSV)})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if run.Status != RunPassed {
		t.Errorf("Status = %q, want %q", run.Status, RunPassed)
	}
	if diff := cmp.Diff([]string{"ABC-1", "DEF-2"}, run.GeneFields); diff != "" {
		t.Errorf("GeneFields mismatch (-want +got):\n%s", diff)
	}
	if run.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", run.RowCount)
	}
	if run.Origin != "cli" {
		t.Errorf("Origin = %q, want cli", run.Origin)
	}
	if len(store.runs) != 1 || store.runs[0].ID != run.ID {
		t.Errorf("recorded runs = %v, want the returned run", store.runs)
	}
}

func TestService_ValidateRecordsFailure(t *testing.T) {
	store := &memoryRunStore{}
	svc := newTestService(store)

	run, err := svc.Validate(context.Background(), ValidateRequest{Name: "ref.csv", Source: strings.NewReader(interGenicCSV)})
	if !errors.Is(err, ErrDuplicateAccessions) {
		t.Fatalf("Validate() error = %v, want duplicates", err)
	}
	if run == nil {
		t.Fatal("Validate() run = nil, want failed run")
	}
	if run.Status != RunFailed || run.ErrorCode != "GENE003" {
		t.Errorf("run = %+v, want failed GENE003", run)
	}
	want := []InterGenicDuplicate{{Gene: "DEF-2", Accession: "q"}}
	if diff := cmp.Diff(want, run.Findings.InterGenic); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
	if len(store.runs) != 1 {
		t.Errorf("recorded %d runs, want 1", len(store.runs))
	}
}

func TestService_ValidateIgnoreDuplicates(t *testing.T) {
	svc := newTestService(nil)

	run, err := svc.Validate(context.Background(), ValidateRequest{
		Name:             "ref.csv",
		Source:           strings.NewReader(interGenicCSV),
		IgnoreDuplicates: true,
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if run.Status != RunPassed {
		t.Errorf("Status = %q, want passed", run.Status)
	}
}

func TestService_ValidateUnreadableSource(t *testing.T) {
	svc := newTestService(&memoryRunStore{})

	run, err := svc.Validate(context.Background(), ValidateRequest{Name: "empty.csv", Source: strings.NewReader("")})
	if !errors.Is(err, table.ErrEmptySource) {
		t.Errorf("Validate() error = %v, want ErrEmptySource", err)
	}
	if run != nil {
		t.Errorf("run = %+v, want nil", run)
	}
}

func TestService_ValidateDelimiterOverride(t *testing.T) {
	svc := newTestService(nil)
	src := "id|ABC-1\n|GENE\n1|a\n"

	run, err := svc.Validate(context.Background(), ValidateRequest{Name: "p.txt", Source: strings.NewReader(src), Delimiter: '|'})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if diff := cmp.Diff([]string{"ABC-1"}, run.GeneFields); diff != "" {
		t.Errorf("GeneFields mismatch (-want +got):\n%s", diff)
	}
}

func TestService_RecordFailureDoesNotFailValidation(t *testing.T) {
	svc := newTestService(&memoryRunStore{err: errors.New("db down")})

	run, err := svc.Validate(context.Background(), ValidateRequest{Name: "ref.csv", Source: strings.NewReader(passingCSV)})
	if err != nil || run.Status != RunPassed {
		t.Errorf("Validate() = %v, %v; want passed run", run, err)
	}
}

func TestService_LimiterSaturated(t *testing.T) {
	svc := newTestService(nil)
	svc.Limiter().TryAcquire()
	defer svc.Limiter().Release()

	_, err := svc.Validate(context.Background(), ValidateRequest{Name: "ref.csv", Source: strings.NewReader(passingCSV)})
	if !errors.Is(err, ErrTooManyValidations) {
		t.Errorf("Validate() error = %v, want ErrTooManyValidations", err)
	}
}

func TestService_HistoryDisabled(t *testing.T) {
	svc := newTestService(nil)
	if svc.HistoryEnabled() {
		t.Error("HistoryEnabled() = true, want false")
	}
	if _, err := svc.Runs(context.Background(), 10); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Runs() error = %v, want ErrHistoryDisabled", err)
	}
	if _, err := svc.Run(context.Background(), uuid.New()); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Run() error = %v, want ErrHistoryDisabled", err)
	}
}

func TestService_RunLookup(t *testing.T) {
	store := &memoryRunStore{}
	svc := newTestService(store)

	run, _ := svc.Validate(context.Background(), ValidateRequest{Name: "ref.csv", Source: strings.NewReader(passingCSV)})
	got, err := svc.Run(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.SourceName != "ref.csv" {
		t.Errorf("SourceName = %q, want ref.csv", got.SourceName)
	}
	if _, err := svc.Run(context.Background(), uuid.New()); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Run(unknown) error = %v, want ErrRunNotFound", err)
	}
}

func TestService_RecordFailureLoggedWithRun(t *testing.T) {
	var buf bytes.Buffer
	svc := NewService(ServiceConfig{
		Validator: NewValidator(ValidatorConfig{Logger: discardLogger()}),
		Runs:      &memoryRunStore{err: errors.New("disk full")},
		Logger:    slog.New(slog.NewTextHandler(&buf, nil)),
	})

	run, err := svc.Validate(context.Background(), ValidateRequest{Name: "ref.csv", Source: strings.NewReader(passingCSV)})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	for _, msg := range []string{"validation completed", "record run failed"} {
		var line string
		for _, l := range strings.Split(buf.String(), "\n") {
			if strings.Contains(l, msg) {
				line = l
			}
		}
		if line == "" {
			t.Fatalf("log missing %q:\n%s", msg, buf.String())
		}
		for _, want := range []string{"run_id=" + run.ID.String(), "source=ref.csv"} {
			if !strings.Contains(line, want) {
				t.Errorf("%q line missing %q: %s", msg, want, line)
			}
		}
	}
}
