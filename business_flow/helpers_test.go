package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
)

const testBaseURL = "http://sho.rt"

var errCacheDown = errors.New("cache unreachable")

// failingCache fails every operation, like a Redis that is down
type failingCache struct{}

func (failingCache) Get(context.Context, string) (*services.CachedLink, error) {
	return nil, errCacheDown
}
func (failingCache) Set(context.Context, string, *services.CachedLink, time.Duration) error {
	return errCacheDown
}
func (failingCache) Delete(context.Context, ...string) error { return errCacheDown }
func (failingCache) Ping(context.Context) error              { return errCacheDown }

// recordingMetrics counts the domain events it receives
type recordingMetrics struct {
	mu          sync.Mutex
	cache       map[string]int
	resolutions map[string]int
	created     map[string]int
	clicksOK    int
	clicksFail  int
	swept       int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		cache:       map[string]int{},
		resolutions: map[string]int{},
		created:     map[string]int{},
	}
}

func (m *recordingMetrics) CacheResult(op, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[op+":"+result]++
}

func (m *recordingMetrics) Resolution(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions[outcome]++
}

func (m *recordingMetrics) LinkCreated(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created[kind]++
}

func (m *recordingMetrics) ClickRecorded(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.clicksOK++
	} else {
		m.clicksFail++
	}
}

func (m *recordingMetrics) ExpiredSwept(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swept += n
}

type testEnv struct {
	db        *testingutil.TestDB
	fixtures  *testingutil.TestFixtures
	linkRepo  repository.ShortLinkRepository
	clickRepo repository.ShortLinkClickRepository
	cache     *services.MemoryLinkCache
	metrics   *recordingMetrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := testingutil.SetupSQLiteTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.TeardownTestDB() })

	cache, err := services.NewMemoryLinkCache(128)
	require.NoError(t, err)

	return &testEnv{
		db:        db,
		fixtures:  testingutil.NewTestFixtures(db),
		linkRepo:  repository.NewShortLinkRepository(db.DB),
		clickRepo: repository.NewShortLinkClickRepository(db.DB),
		cache:     cache,
		metrics:   newRecordingMetrics(),
	}
}

func (e *testEnv) shortLinkFlow(cache services.LinkCache, production bool) ShortLinkFlow {
	return NewShortLinkFlow(
		e.linkRepo,
		cache,
		NewCodeGenerator(e.linkRepo),
		NewLinkValidator(nil, production),
		e.metrics,
		zap.NewNop(),
		testBaseURL,
		time.Hour,
	)
}

func (e *testEnv) clickTracker() *ClickTrackerImpl {
	return NewClickTracker(e.linkRepo, nil, nil, e.metrics, zap.NewNop(), 0, time.Second)
}

func modelsFilterActive() models.ShortLinkFilter {
	return models.ShortLinkFilter{IsActive: utils.ToPtr(true)}
}

func modelsFilterAll() models.ShortLinkFilter {
	return models.ShortLinkFilter{}
}
