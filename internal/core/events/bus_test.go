package events_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"

	"github.com/frahmantamala/client-portal/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	})

	It("delivers asynchronous events after the publisher's context is cancelled", func() {
		var calls atomic.Int32
		bus.Subscribe(events.EventTypeUploadProgress, func(ctx context.Context, ev events.Event) error {
			defer GinkgoRecover()
			Expect(ctx.Err()).NotTo(HaveOccurred())
			calls.Add(1)
			return nil
		})
		bus.Subscribe(events.EventTypeUploadProgress, func(ctx context.Context, ev events.Event) error {
			calls.Add(1)
			return errors.New("ignored")
		})

		ctx, cancel := context.WithCancel(context.Background())
		Expect(bus.Publish(ctx, events.NewUploadProgressEvent("1", "f", 10))).To(Succeed())
		cancel()
		bus.Close()

		Expect(calls.Load()).To(Equal(int32(2)))
	})

	It("runs every synchronous handler and joins their errors", func() {
		var order []string
		bus.Subscribe(events.EventTypeUploadBatchComplete, func(ctx context.Context, ev events.Event) error {
			order = append(order, "first")
			return errors.New("first failed")
		})
		bus.Subscribe(events.EventTypeUploadBatchComplete, func(ctx context.Context, ev events.Event) error {
			order = append(order, "second")
			panic("boom")
		})
		bus.Subscribe(events.EventTypeUploadBatchComplete, func(ctx context.Context, ev events.Event) error {
			order = append(order, "third")
			return nil
		})

		err := bus.PublishSync(context.Background(), events.NewUploadBatchCompletedEvent("1", "1", nil))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("first failed"))
		Expect(err.Error()).To(ContainSubstring("handler panicked: boom"))
		Expect(order).To(Equal([]string{"first", "second", "third"}))
	})

	It("ignores events nobody listens to", func() {
		Expect(bus.Publish(context.Background(), events.NewUploadFileFailedEvent("1", "f", "read"))).To(Succeed())
		Expect(bus.PublishSync(context.Background(), events.NewUploadFileFailedEvent("1", "f", "read"))).To(Succeed())
	})

	It("refuses publishes once closed", func() {
		bus.Close()
		Expect(bus.Publish(context.Background(), events.NewUploadProgressEvent("1", "f", 10))).To(MatchError(events.ErrBusClosed))
		Expect(bus.PublishSync(context.Background(), events.NewUploadProgressEvent("1", "f", 10))).To(MatchError(events.ErrBusClosed))
	})
})
