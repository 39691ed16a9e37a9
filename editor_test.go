package netdesign

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/fiberonix/netdesign/core"
	"github.com/fiberonix/netdesign/domain"
	"github.com/fiberonix/netdesign/export"
)

// memoryRepo is an in-memory domain.DesignRepository. When gate is set, GetDesign waits
// for it before answering; createGate does the same for CreateDesign. getErr makes every
// GetDesign fail.
type memoryRepo struct {
	mu      sync.Mutex
	designs map[string]*domain.Chain
	nextID  int
	gate    chan struct{}
	entered chan struct{}

	createGate    chan struct{}
	createEntered chan struct{}
	getErr        error
	updates       int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{designs: make(map[string]*domain.Chain)}
}

func (r *memoryRepo) ListDesigns(ctx context.Context) ([]*domain.Chain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Chain, 0, len(r.designs))
	for _, c := range r.designs {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (r *memoryRepo) GetDesign(ctx context.Context, id string) (*domain.Chain, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.designs[id]
	if !ok {
		return nil, domain.ErrDesignNotFound
	}
	return domain.RestoreChain(c.ID, c.Name, c.CreatedAt, c.InitialInputPowerDBm(), c.Status, c.Stages()), nil
}

func (r *memoryRepo) CreateDesign(ctx context.Context, chain *domain.Chain) (string, error) {
	if r.createEntered != nil {
		r.createEntered <- struct{}{}
	}
	if r.createGate != nil {
		<-r.createGate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := string(rune('0' + r.nextID))
	stored := chain.Clone()
	stored.ID = id
	stored.CreatedAt = time.Now()
	r.designs[id] = stored
	return id, nil
}

func (r *memoryRepo) UpdateDesign(ctx context.Context, chain *domain.Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.designs[chain.ID]; !ok {
		return domain.ErrDesignNotFound
	}
	r.updates++
	r.designs[chain.ID] = chain.Clone()
	return nil
}

func (r *memoryRepo) DeleteDesign(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.designs[id]; !ok {
		return domain.ErrDesignNotFound
	}
	delete(r.designs, id)
	return nil
}

func newTestDesigner(t *testing.T, repo domain.DesignRepository) *Designer {
	t.Helper()
	options := []func(*Designer) error{}
	if repo != nil {
		options = append(options, WithRepo(repo))
	}
	d, err := New(options...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return d
}

func TestEditor_NewDesign(t *testing.T) {
	t.Run("should start empty at the configured input power", func(t *testing.T) {
		e := newTestDesigner(t, nil).NewEditor()

		c := e.Chain()
		if c.Len() != 0 || c.InitialInputPowerDBm() != 8 || !c.Editable() {
			t.Fatalf("\nwanted:\nempty editable chain at 8 dBm\ngot:\n%d %v %v", c.Len(), c.InitialInputPowerDBm(), c.Editable())
		}
	})

	t.Run("should add stages from defaults and propagate power", func(t *testing.T) {
		e := newTestDesigner(t, nil).NewEditor()

		if err := e.AddStage(); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if err := e.AddStage(core.StageWithRatio("50:50"), core.StageWithDistances(1, 2)); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		budget := e.Budget()
		if budget[0].Ratio != "10/90" || budget[1].Ratio != "50/50" {
			t.Fatalf("\nwanted:\n10/90 50/50\ngot:\n%s %s", budget[0].Ratio, budget[1].Ratio)
		}
		if budget[1].InputDBm != budget[0].ThroughDBm {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", budget[0].ThroughDBm, budget[1].InputDBm)
		}
		// 7.34 - 3.2 - 2*0.2
		if math.Abs(budget[1].ThroughDBm-3.74) > 1e-9 {
			t.Fatalf("\nwanted:\n3.74\ngot:\n%v", budget[1].ThroughDBm)
		}
	})

	t.Run("should not add a stage when an option fails", func(t *testing.T) {
		e := newTestDesigner(t, nil).NewEditor()

		err := e.AddStage(core.StageWithRatio("33/66"))
		if !errors.Is(err, core.ErrUnknownRatio) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", core.ErrUnknownRatio, err)
		}
		if e.Chain().Len() != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", e.Chain().Len())
		}
	})

	t.Run("should re-evaluate when the input power changes", func(t *testing.T) {
		e := newTestDesigner(t, nil).NewEditor()
		e.AddStage()
		e.AddStage()

		e.SetInitialPower(10)
		budget := e.Budget()
		if budget[0].InputDBm != 10 || math.Abs(budget[1].InputDBm-9.34) > 1e-9 {
			t.Fatalf("\nwanted:\n10 9.34\ngot:\n%v %v", budget[0].InputDBm, budget[1].InputDBm)
		}
	})
}

func TestEditor_Save(t *testing.T) {
	t.Run("should require a name", func(t *testing.T) {
		e := newTestDesigner(t, newMemoryRepo()).NewEditor()
		e.SetName("   ")

		if _, err := e.Save(context.Background()); !errors.Is(err, domain.ErrNameRequired) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", domain.ErrNameRequired, err)
		}
	})

	t.Run("should require a repository", func(t *testing.T) {
		e := newTestDesigner(t, nil).NewEditor()
		e.SetName("Feeder")

		if _, err := e.Save(context.Background()); !errors.Is(err, ErrNoRepository) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNoRepository, err)
		}
	})

	t.Run("should create, reload as locked, then update", func(t *testing.T) {
		repo := newMemoryRepo()
		e := newTestDesigner(t, repo).NewEditor()
		e.SetName("Feeder")
		e.AddStage()

		id, err := e.Save(context.Background())
		if err != nil || id == "" {
			t.Fatalf("\nwanted:\nid\ngot:\n%q %v", id, err)
		}
		if e.Chain().ID != id || e.Chain().Editable() {
			t.Fatalf("\nwanted:\nlocked chain %s\ngot:\n%s editable=%v", id, e.Chain().ID, e.Chain().Editable())
		}

		if err := e.AddStage(); !errors.Is(err, domain.ErrChainLocked) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", domain.ErrChainLocked, err)
		}
		if err := e.UpdateStage(0, core.StageWithRatio("20/80")); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		e.SetStatus(domain.StatusCompleted)

		if _, err := e.Save(context.Background()); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		stored, _ := repo.GetDesign(context.Background(), id)
		first, _ := stored.Stage(0)
		if first.Ratio != "20/80" || stored.Status != domain.StatusCompleted {
			t.Fatalf("\nwanted:\n20/80 Completed\ngot:\n%s %s", first.Ratio, stored.Status)
		}
	})

	t.Run("should keep a chain reset while the create was in flight", func(t *testing.T) {
		repo := newMemoryRepo()
		repo.createGate = make(chan struct{})
		repo.createEntered = make(chan struct{})
		e := newTestDesigner(t, repo).NewEditor()
		e.SetName("Feeder")
		e.AddStage()

		type result struct {
			id  string
			err error
		}
		done := make(chan result, 1)
		go func() {
			id, err := e.Save(context.Background())
			done <- result{id, err}
		}()

		<-repo.createEntered
		e.Reset()
		close(repo.createGate)

		res := <-done
		if res.err != nil || res.id == "" {
			t.Fatalf("\nwanted:\nid\ngot:\n%q %v", res.id, res.err)
		}
		c := e.Chain()
		if c.ID != "" || c.Name != "" || c.Len() != 0 || !c.Editable() {
			t.Fatalf("\nwanted:\nblank editable chain\ngot:\n%q %q %d editable=%v", c.ID, c.Name, c.Len(), c.Editable())
		}
		if _, err := repo.GetDesign(context.Background(), res.id); err != nil {
			t.Fatalf("\nwanted:\nstored design\ngot:\n%v", err)
		}
	})

	t.Run("should keep the new id when the reload fails", func(t *testing.T) {
		repo := newMemoryRepo()
		repo.getErr = errors.New("connection reset")
		e := newTestDesigner(t, repo).NewEditor()
		e.SetName("Feeder")
		e.AddStage()

		id, err := e.Save(context.Background())
		if err == nil || id == "" {
			t.Fatalf("\nwanted:\nid and reload error\ngot:\n%q %v", id, err)
		}
		if e.Chain().ID != id {
			t.Fatalf("\nwanted:\n%s\ngot:\n%q", id, e.Chain().ID)
		}

		repo.getErr = nil
		again, err := e.Save(context.Background())
		if err != nil || again != id {
			t.Fatalf("\nwanted:\n%s\ngot:\n%q %v", id, again, err)
		}
		if len(repo.designs) != 1 || repo.updates != 1 {
			t.Fatalf("\nwanted:\n1 design updated once\ngot:\n%d designs %d updates", len(repo.designs), repo.updates)
		}
	})
}

func TestEditor_Load(t *testing.T) {
	t.Run("should report a missing design", func(t *testing.T) {
		e := newTestDesigner(t, newMemoryRepo()).NewEditor()

		if err := e.Load(context.Background(), "9"); !errors.Is(err, domain.ErrDesignNotFound) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", domain.ErrDesignNotFound, err)
		}
	})

	t.Run("should discard a load that finishes after close", func(t *testing.T) {
		repo := newMemoryRepo()
		id, _ := repo.CreateDesign(context.Background(), domain.NewChain("stored", 8))
		repo.gate = make(chan struct{})
		repo.entered = make(chan struct{})

		e := newTestDesigner(t, repo).NewEditor()
		done := make(chan error, 1)
		go func() {
			done <- e.Load(context.Background(), id)
		}()

		<-repo.entered
		e.Close()
		close(repo.gate)

		if err := <-done; !errors.Is(err, ErrSuperseded) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrSuperseded, err)
		}
		if e.Chain().Name != "" || e.Chain().ID != "" {
			t.Fatalf("\nwanted:\nblank chain\ngot:\n%q %q", e.Chain().Name, e.Chain().ID)
		}
	})
}

func TestEditor_ImportExport(t *testing.T) {
	t.Run("should round trip a design through yaml", func(t *testing.T) {
		d := newTestDesigner(t, nil)
		e := d.NewEditor()
		e.SetName("Loop")
		e.AddStage(core.StageWithDistances(1, 3))

		var buf bytes.Buffer
		if err := e.Export(&buf, export.FormatYAML); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		other := d.NewEditor()
		if err := other.Import(buf.Bytes()); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if other.Chain().Name != "Loop" || other.Chain().Len() != 1 {
			t.Fatalf("\nwanted:\nLoop with 1 stage\ngot:\n%s %d", other.Chain().Name, other.Chain().Len())
		}
	})
}

func TestDesigner(t *testing.T) {
	t.Run("should list and delete designs", func(t *testing.T) {
		repo := newMemoryRepo()
		id, _ := repo.CreateDesign(context.Background(), domain.NewChain("stored", 8))
		d := newTestDesigner(t, repo)

		designs, err := d.Designs(context.Background())
		if err != nil || len(designs) != 1 {
			t.Fatalf("\nwanted:\n1 design\ngot:\n%d %v", len(designs), err)
		}
		if err := d.Delete(context.Background(), id); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if err := d.Delete(context.Background(), id); !errors.Is(err, domain.ErrDesignNotFound) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", domain.ErrDesignNotFound, err)
		}
	})

	t.Run("should refuse without repository", func(t *testing.T) {
		d := newTestDesigner(t, nil)
		if _, err := d.Designs(context.Background()); !errors.Is(err, ErrNoRepository) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNoRepository, err)
		}
	})
}
