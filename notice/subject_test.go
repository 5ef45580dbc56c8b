package notice_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/go-orders-client/notice"
	"github.com/stretchr/testify/require"
)

func TestSubject_DeliversInSubscriptionOrder(t *testing.T) {
	s := notice.NewSubject[int]()
	var got []string

	s.Subscribe(func(v int) { got = append(got, "first") })
	s.Subscribe(func(v int) { got = append(got, "second") })
	s.Publish(1)

	require.Equal(t, []string{"first", "second"}, got)
}

func TestSubject_Unsubscribe(t *testing.T) {
	s := notice.NewSubject[int]()
	var total int

	unsubscribe := s.Subscribe(func(v int) { total += v })
	s.Publish(2)
	unsubscribe()
	unsubscribe()
	s.Publish(5)

	require.Equal(t, 2, total)
	require.Zero(t, s.Len())
}

func TestSubject_PanickingSubscriberDoesNotStopOthers(t *testing.T) {
	s := notice.NewSubject[string]()
	var delivered bool

	s.Subscribe(func(string) { panic("boom") })
	s.Subscribe(func(string) { delivered = true })

	require.NotPanics(t, func() { s.Publish("x") })
	require.True(t, delivered)
}

func TestBus_Notice(t *testing.T) {
	bus := notice.NewBus()
	var got notice.Notice
	bus.Subscribe(func(n notice.Notice) { got = n })

	cause := errors.New("offline")
	bus.Publish(notice.New(notice.ConnectionLost, "Verifique sua conexão", cause))

	require.Equal(t, notice.ConnectionLost, got.Kind)
	require.ErrorIs(t, got.Err, cause)
	require.False(t, got.At.IsZero())
}
