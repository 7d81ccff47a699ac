package acktracker

import (
	"testing"

	"github.com/grafana/tempo-logsource/pkg/bookmark"
	"github.com/grafana/tempo-logsource/pkg/window"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeState struct {
	saves [][]byte
}

func (f *fakeState) WritePosition(name string, position [bookmark.MaxPositionBytes]byte, n int) error {
	cp := make([]byte, n)
	copy(cp, position[:n])
	f.saves = append(f.saves, cp)
	return nil
}

type testMsg struct {
	ackRecord *Record
}

func (m *testMsg) AckRecord() *Record           { return m.ackRecord }
func (m *testMsg) SetAckRecord(r *Record)       { m.ackRecord = r }

func inject(t *testing.T, tr Tracker, st *fakeState, position string) *testMsg {
	t.Helper()
	rec := tr.RequestBookmark()
	require.NotNil(t, rec, "store should not be full for %q", position)
	require.NoError(t, rec.Bookmark.Fill("src", st, []byte(position)))

	msg := &testMsg{}
	tr.Track(msg)
	return msg
}

// TestEarlyAckHappyPath implements scenario S1: early-ack, initial
// window 4, inject 3, ack all Processed in order. free_to_send never
// observed false; 3 adjust(+1) calls; no bookmark.Save invoked.
func TestEarlyAckHappyPath(t *testing.T) {
	w := window.New(4, nil, nil)
	tr := NewEarly(w)
	st := &fakeState{}

	var msgs []*testMsg
	for i := 0; i < 3; i++ {
		msgs = append(msgs, inject(t, tr, st, "pos"))
		w.Take(1)
		require.True(t, w.FreeToSend())
	}

	for _, m := range msgs {
		tr.ManageAck(m, Processed)
	}

	require.Equal(t, int64(4), w.WindowSize())
	require.Empty(t, st.saves, "early-ack must never save a bookmark")
}

// TestLateAckStaticOutOfOrderAcks implements scenario S2.
func TestLateAckStaticOutOfOrderAcks(t *testing.T) {
	w := window.New(4, nil, nil)
	tr := NewLateStatic(4, w, nil)
	st := &fakeState{}

	m1 := inject(t, tr, st, "p1")
	w.Take(1)
	m2 := inject(t, tr, st, "p2")
	w.Take(1)
	m3 := inject(t, tr, st, "p3")
	w.Take(1)
	m4 := inject(t, tr, st, "p4")
	w.Take(1)

	require.Equal(t, int64(0), w.WindowSize())
	require.False(t, w.FreeToSend(), "tracker full must coincide with window exhaustion")
	require.Nil(t, tr.RequestBookmark(), "a full ring must refuse RequestBookmark")

	tr.ManageAck(m2, Processed)
	tr.ManageAck(m3, Processed)
	require.Empty(t, st.saves, "no contiguous prefix yet -- m1 still unacked")
	require.Equal(t, int64(0), w.WindowSize())

	tr.ManageAck(m1, Processed)
	require.Equal(t, [][]byte{[]byte("p1"), []byte("p3")}, st.saves,
		"m1 saved alone, then immediately superseded by m3 once the m1,m2,m3 prefix closes")
	require.Equal(t, int64(3), w.WindowSize())

	onAllAcked := false
	Tracker(tr).(OnAllAckedSetter).SetOnAllAcked(func() { onAllAcked = true })

	tr.ManageAck(m4, Processed)
	require.Equal(t, [][]byte{[]byte("p1"), []byte("p3"), []byte("p4")}, st.saves)
	require.Equal(t, int64(4), w.WindowSize())
	require.True(t, onAllAcked)
}

// TestLateAckStaticAbortedPrefix implements scenario S3.
func TestLateAckStaticAbortedPrefix(t *testing.T) {
	w := window.New(4, nil, nil)
	tr := NewLateStatic(4, w, nil)
	st := &fakeState{}

	m1 := inject(t, tr, st, "p1")
	w.Take(1)
	m2 := inject(t, tr, st, "p2")
	w.Take(1)

	tr.ManageAck(m1, Aborted)
	require.Empty(t, st.saves, "aborted prefix must not be saved")
	require.Equal(t, int64(3), w.WindowSize())

	tr.ManageAck(m2, Processed)
	require.Equal(t, [][]byte{[]byte("p2")}, st.saves)
	require.Equal(t, int64(4), w.WindowSize())
}

// TestLateAckSuspendParksCredit implements scenario S4.
func TestLateAckSuspendParksCredit(t *testing.T) {
	w := window.New(3, nil, nil)
	tr := NewLateStatic(3, w, nil)
	st := &fakeState{}

	m1 := inject(t, tr, st, "p1")
	w.Take(1)
	m2 := inject(t, tr, st, "p2")
	w.Take(1)
	require.Equal(t, int64(1), w.WindowSize())

	allAcked := false
	Tracker(tr).(OnAllAckedSetter).SetOnAllAcked(func() { allAcked = true })

	tr.ManageAck(m1, Suspended)
	require.Equal(t, int64(0), w.WindowSize())
	require.Equal(t, int64(2), w.SuspendedWindowSize(), "pre-suspend window_size(1) parked + m1's adjust(1)")

	tr.ManageAck(m2, Processed)
	require.Equal(t, int64(3), w.WindowSize())
	require.True(t, allAcked)
}

// TestLateAckDynamicGrowsBeyondInitialWindow implements scenario S5.
func TestLateAckDynamicGrowsBeyondInitialWindow(t *testing.T) {
	w := window.New(2, nil, nil)
	tr := NewLateDynamic(w, nil)
	st := &fakeState{}

	m1 := inject(t, tr, st, "p1")
	w.Take(1)
	m2 := inject(t, tr, st, "p2")
	w.Take(1)
	require.False(t, w.FreeToSend(), "admission is bounded by the window, not the dynamic store")

	// Credit more than the initial window via acks (simulating a
	// dynamic resize elsewhere crediting extra capacity).
	tr.ManageAck(m1, Processed)
	w.Adjust(2) // extra credit on top of the tracker's own +1

	require.True(t, w.FreeToSend())

	m3 := inject(t, tr, st, "p3")
	w.Take(1)
	m4 := inject(t, tr, st, "p4")
	w.Take(1)
	m5 := inject(t, tr, st, "p5")
	w.Take(1)
	require.NotNil(t, m5, "dynamic store must accept more records than the initial window")

	for _, m := range []*testMsg{m2, m3, m4, m5} {
		tr.ManageAck(m, Processed)
	}
}

func TestDisableBookmarkSavingSuppressesSave(t *testing.T) {
	w := window.New(2, nil, nil)
	tr := NewLateStatic(2, w, nil)
	st := &fakeState{}

	m1 := inject(t, tr, st, "p1")
	w.Take(1)
	tr.DisableBookmarkSaving()

	tr.ManageAck(m1, Processed)
	require.Empty(t, st.saves)
}

func TestFreeWithLiveRecordsPanics(t *testing.T) {
	w := window.New(2, nil, nil)
	tr := NewLateStatic(2, w, nil)
	st := &fakeState{}
	inject(t, tr, st, "p1")

	require.Panics(t, func() { tr.Free() })
}

func TestFreeWhenEmptyIsFine(t *testing.T) {
	w := window.New(2, nil, nil)
	tr := NewLateStatic(2, w, nil)
	require.NotPanics(t, func() { tr.Free() })
}

func TestTrackWithoutRequestBookmarkPanics(t *testing.T) {
	w := window.New(2, nil, nil)
	tr := NewLateStatic(2, w, nil)
	require.Panics(t, func() { tr.Track(&testMsg{}) })
}
