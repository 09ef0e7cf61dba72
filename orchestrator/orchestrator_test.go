package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestatesync/adapters"
	"realestatesync/adapters/extension"
	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/relay"
	"realestatesync/settings"
	"realestatesync/storage"
	"realestatesync/utils"
)

// fakePublisher records calls and answers with a fixed outcome per target.
type fakePublisher struct {
	outcomes map[string]adapters.Outcome
	calls    []string
	panics   bool
}

func (f *fakePublisher) Publish(_ context.Context, _ *models.Property, target registry.Target, _ settings.Config) adapters.Outcome {
	f.calls = append(f.calls, target.Name)
	if f.panics {
		panic("adapter exploded")
	}
	if outcome, ok := f.outcomes[target.Name]; ok {
		return outcome
	}
	return adapters.Successful("https://" + target.Name + ".example.com/listing/1")
}

func (f *fakePublisher) TestConnection(context.Context, registry.Target, settings.Config) error {
	return nil
}

type fakeRelay struct {
	connected bool
	ack       relay.Message
}

func (f *fakeRelay) Connected() bool { return f.connected }
func (f *fakeRelay) Send(context.Context, relay.Message) (relay.Message, error) {
	return f.ack, nil
}

type fixture struct {
	orch     *Orchestrator
	store    *storage.MemoryStore
	settings *settings.MemoryStore
	rest     *fakePublisher
	wp       *fakePublisher
}

// newFixture wires an orchestrator over in-memory stores with every target
// fully configured and the extension connected and accepting.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := utils.NewTestLogger()

	store := storage.NewMemoryStore()
	settingsStore := settings.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, settingsStore.Upsert(ctx, settings.Config{
		Target: "stub-site", Enabled: true, APIKey: "k", APISecret: "s",
	}))
	require.NoError(t, settingsStore.Upsert(ctx, settings.Config{
		Target: "wordpress", Enabled: true, APIURL: "https://blog.example.com", Username: "admin", Password: "pw",
	}))
	require.NoError(t, settingsStore.Upsert(ctx, settings.Config{
		Target: "facebook", Enabled: true, Pages: []settings.PageConfig{{ID: "pg", AccessToken: "tok"}},
	}))
	require.NoError(t, settingsStore.Upsert(ctx, settings.Config{
		Target: "merrjep", Enabled: true, Username: "agent", Password: "pw",
	}))
	require.NoError(t, settingsStore.Upsert(ctx, settings.Config{
		Target: "indomio", Enabled: true, Username: "agent", Password: "pw",
	}))

	resolver := settings.NewResolver(settingsStore, logger).WithEnv(func(string) string { return "" })

	rest := &fakePublisher{}
	wp := &fakePublisher{}
	publishers := map[registry.Family]adapters.Publisher{
		registry.FamilyREST:      rest,
		registry.FamilyWordPress: wp,
		registry.FamilySocial:    &fakePublisher{},
		registry.FamilyBrowser:   &fakePublisher{},
	}

	ext := extension.New(logger, &fakeRelay{connected: true, ack: relay.Message{OK: true}}, time.Second)
	return &fixture{
		orch:     New(logger, store, resolver, publishers, ext),
		store:    store,
		settings: settingsStore,
		rest:     rest,
		wp:       wp,
	}
}

func seedProperty(t *testing.T, store *storage.MemoryStore) *models.Property {
	t.Helper()
	p := &models.Property{
		ID:            "11111111-aaaa-bbbb-cccc-000000000001",
		Title:         "Apartment in Tirana",
		Price:         98000,
		Distributions: registry.SeedDistributions(nil),
	}
	require.NoError(t, store.Create(context.Background(), p))
	return p
}

func TestPublishAllNeverLeavesPending(t *testing.T) {
	f := newFixture(t)
	p := seedProperty(t, f.store)

	updated, err := f.orch.Publish(context.Background(), p.ID, TargetAll)
	require.NoError(t, err)

	assert.Len(t, updated.Distributions, len(registry.List()))
	for target, st := range updated.Distributions {
		assert.NotEqual(t, models.DistributionPending, st.Status, "target %s left pending", target)
		if st.Status == models.DistributionSuccess {
			assert.Empty(t, st.Error, "success entry for %s carries an error", target)
		} else {
			assert.NotEmpty(t, st.Error, "error entry for %s has no message", target)
		}
	}
	assert.True(t, updated.Published)
}

func TestPublishIsolatesTargetFailures(t *testing.T) {
	f := newFixture(t)
	f.wp.outcomes = map[string]adapters.Outcome{
		"wordpress": adapters.Failure("wordpress returned status 500"),
	}
	p := seedProperty(t, f.store)

	updated, err := f.orch.Publish(context.Background(), p.ID, TargetAll)
	require.NoError(t, err)

	assert.Equal(t, models.DistributionError, updated.Distributions["wordpress"].Status)
	assert.Equal(t, "wordpress returned status 500", updated.Distributions["wordpress"].Error)
	assert.Equal(t, models.DistributionSuccess, updated.Distributions["stub-site"].Status)
	assert.Equal(t, models.DistributionSuccess, updated.Distributions["facebook"].Status)
}

func TestPublishConfigFailureSkipsAdapter(t *testing.T) {
	f := newFixture(t)
	// Break wordpress settings: disabled target must fail before the
	// adapter is ever invoked.
	require.NoError(t, f.settings.Upsert(context.Background(), settings.Config{
		Target: "wordpress", Enabled: false, APIURL: "https://blog.example.com", Username: "admin", Password: "pw",
	}))
	p := seedProperty(t, f.store)

	updated, err := f.orch.Publish(context.Background(), p.ID, "wordpress")
	require.NoError(t, err)

	assert.Empty(t, f.wp.calls, "adapter must not run when resolution fails")
	assert.Equal(t, models.DistributionError, updated.Distributions["wordpress"].Status)
	assert.Contains(t, updated.Distributions["wordpress"].Error, "disabled")
}

func TestPublishSingleTargetTouchesOnlyThatEntry(t *testing.T) {
	f := newFixture(t)
	p := seedProperty(t, f.store)

	updated, err := f.orch.Publish(context.Background(), p.ID, "stub-site")
	require.NoError(t, err)

	assert.Equal(t, models.DistributionSuccess, updated.Distributions["stub-site"].Status)
	assert.Equal(t, models.DistributionPending, updated.Distributions["wordpress"].Status)
	assert.Equal(t, []string{"stub-site"}, f.rest.calls)
}

func TestPublishRecoversFromAdapterPanic(t *testing.T) {
	f := newFixture(t)
	f.rest.panics = true
	p := seedProperty(t, f.store)

	updated, err := f.orch.Publish(context.Background(), p.ID, TargetAll)
	require.NoError(t, err)

	assert.Equal(t, models.DistributionError, updated.Distributions["stub-site"].Status)
	assert.Contains(t, updated.Distributions["stub-site"].Error, "internal error")
	// The panic must not have stopped the remaining targets.
	assert.Equal(t, models.DistributionSuccess, updated.Distributions["wordpress"].Status)
}

func TestPublishUnknownPropertyAndTarget(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Publish(context.Background(), "missing-id", TargetAll)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	p := seedProperty(t, f.store)
	_, err = f.orch.Publish(context.Background(), p.ID, "zillow")
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestPublishExtensionNotInstalled(t *testing.T) {
	f := newFixture(t)
	logger := utils.NewTestLogger()
	f.orch.extension = extension.New(logger, &fakeRelay{connected: false}, time.Second)
	p := seedProperty(t, f.store)

	updated, err := f.orch.Publish(context.Background(), p.ID, "njoftime")
	require.NoError(t, err)

	assert.Equal(t, models.DistributionError, updated.Distributions["njoftime"].Status)
	assert.Equal(t, "extension not installed", updated.Distributions["njoftime"].Error)
}

func TestPublishTwiceIsIdempotentPerEntry(t *testing.T) {
	f := newFixture(t)
	p := seedProperty(t, f.store)

	_, err := f.orch.Publish(context.Background(), p.ID, "stub-site")
	require.NoError(t, err)
	updated, err := f.orch.Publish(context.Background(), p.ID, "stub-site")
	require.NoError(t, err)

	assert.Equal(t, models.DistributionSuccess, updated.Distributions["stub-site"].Status)
	assert.Equal(t, []string{"stub-site", "stub-site"}, f.rest.calls)
}

func TestConsumeStatusUpdates(t *testing.T) {
	f := newFixture(t)
	p := seedProperty(t, f.store)

	updates := make(chan relay.StatusUpdate, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.orch.ConsumeStatusUpdates(ctx, updates)
		close(done)
	}()

	updates <- relay.StatusUpdate{
		PropertyID: p.ID, Target: "njoftime", Success: true, PostURL: "https://njoftime.com/listing/8",
	}
	updates <- relay.StatusUpdate{
		PropertyID: p.ID, Target: "njoftime", Success: false, Message: "form vanished",
	}

	require.Eventually(t, func() bool {
		got, err := f.store.Get(context.Background(), p.ID)
		return err == nil && got.Distributions["njoftime"].Status == models.DistributionError
	}, 5*time.Second, 10*time.Millisecond)

	got, err := f.store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "form vanished", got.Distributions["njoftime"].Error)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop on cancel")
	}
}

func TestTestTarget(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.orch.TestTarget(context.Background(), "stub-site"))
	assert.ErrorIs(t, f.orch.TestTarget(context.Background(), "zillow"), ErrUnknownTarget)
	assert.NoError(t, f.orch.TestTarget(context.Background(), "njoftime"))
}
