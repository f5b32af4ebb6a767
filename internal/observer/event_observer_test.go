package observer

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/sem-inspector-go/pkg/models"
)

type countingObserver struct {
	name  string
	count int32
}

func (c *countingObserver) OnEvent(context.Context, Event) { atomic.AddInt32(&c.count, 1) }
func (c *countingObserver) GetObserverName() string       { return c.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, Event) { panic("boom") }
func (panickingObserver) GetObserverName() string       { return "panicking" }

func TestEventPublisher_NotifyAndUnsubscribe(t *testing.T) {
	pub := NewEventPublisher()
	a := &countingObserver{name: "a"}
	b := &countingObserver{name: "b"}
	pub.Subscribe(a)
	pub.Subscribe(b)
	pub.Subscribe(panickingObserver{})

	pub.NotifyObservers(context.Background(), Event{EventType: OperationStarted, Operation: OperationAssess})
	pub.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&a.count))
	assert.EqualValues(t, 1, atomic.LoadInt32(&b.count))

	pub.Unsubscribe(a)
	pub.NotifyObservers(context.Background(), Event{EventType: OperationStarted, Operation: OperationAssess})
	pub.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&a.count))
	assert.EqualValues(t, 2, atomic.LoadInt32(&b.count))
}

func TestMetricsObserver_Counters(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	m.OnEvent(ctx, Event{EventType: OperationStarted, Operation: OperationAssess})
	m.OnEvent(ctx, Event{EventType: OperationCompleted, Operation: OperationAssess, Overall: models.TierGood, ProcessingTime: 2 * time.Second})
	m.OnEvent(ctx, Event{EventType: OperationStarted, Operation: OperationAssess})
	m.OnEvent(ctx, Event{EventType: OperationCompleted, Operation: OperationAssess, Overall: models.TierPoor, ProcessingTime: 4 * time.Second})
	m.OnEvent(ctx, Event{EventType: OperationStarted, Operation: OperationMatch})
	m.OnEvent(ctx, Event{EventType: OperationFailed, Operation: OperationMatch})
	m.OnEvent(ctx, Event{EventType: ImageFetched})
	m.OnEvent(ctx, Event{EventType: ImageFetchFailed})

	metrics := m.GetMetrics()
	ops := metrics["operations"].(map[string]interface{})

	assess := ops["assess"].(map[string]interface{})
	assert.EqualValues(t, 2, assess["total"])
	assert.EqualValues(t, 2, assess["successful"])
	assert.Equal(t, "3s", assess["avg_processing_time"])

	match := ops["match"].(map[string]interface{})
	assert.EqualValues(t, 1, match["failed"])
	assert.Equal(t, "0s", match["avg_processing_time"])

	tiers := metrics["overall_tiers"].(map[string]int64)
	assert.EqualValues(t, 1, tiers["Good"])
	assert.EqualValues(t, 1, tiers["Poor"])
	assert.EqualValues(t, 1, metrics["images_fetched"])
	assert.EqualValues(t, 1, metrics["image_fetch_failures"])
}

func TestLoggingObserver_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	NewLoggingObserver(log).OnEvent(context.Background(), Event{
		EventType: OperationCompleted,
		Operation: OperationDegrade,
		Success:   true,
		Metadata:  map[string]interface{}{"steps": 2},
	})

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"operation":"degrade"`)
	assert.Contains(t, out, `"steps":2`)
	assert.Contains(t, out, "Operation completed")
}
