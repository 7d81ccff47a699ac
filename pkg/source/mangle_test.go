package source

import "testing"

import "github.com/stretchr/testify/require"

type fakeResolver struct{ name string }

func (f fakeResolver) Resolve(string) string { return f.name }

// TestMangleDeterministic verifies spec §8.8: given identical options,
// source and input message, HOST/HOST_FROM/PROGRAM after mangling are
// deterministic.
func TestMangleDeterministic(t *testing.T) {
	opts := &Options{ChainHostnames: true}
	resolver := fakeResolver{name: "10.0.0.1"}

	run := func() *Message {
		m := &Message{}
		mangle(opts, resolver, "10.0.0.1:514", "", m)
		return m
	}

	a, b := run(), run()
	require.Equal(t, a.Host, b.Host)
	require.Equal(t, a.HostFrom, b.HostFrom)
	require.Equal(t, a.Program, b.Program)
}

func TestMangleChainHostnamesFirstHop(t *testing.T) {
	opts := &Options{ChainHostnames: true}
	m := &Message{}
	mangle(opts, fakeResolver{name: "relay1"}, "addr", "", m)
	require.Equal(t, "relay1/relay1", m.Host)
}

func TestMangleChainHostnamesSubsequentHop(t *testing.T) {
	opts := &Options{ChainHostnames: true}
	m := &Message{}
	mangle(opts, fakeResolver{name: "relay2"}, "addr", "relay1/relay1", m)
	require.Equal(t, "relay1/relay1/relay2", m.Host)
}

func TestMangleSimpleHostname(t *testing.T) {
	opts := &Options{SimpleHostname: true}
	m := &Message{}
	mangle(opts, fakeResolver{name: "host-a"}, "addr", "prior", m)
	require.Equal(t, "host-a", m.Host)
}

func TestMangleLocalSource(t *testing.T) {
	opts := &Options{LocalSource: true, SourceGroupTag: "group1"}
	m := &Message{}
	mangle(opts, fakeResolver{name: "host-a"}, "addr", "", m)
	require.Equal(t, "group1@host-a", m.Host)
}

func TestMangleKeepHostnameSuppressesComputation(t *testing.T) {
	opts := &Options{KeepHostname: true}
	m := &Message{Host: "already-set"}
	mangle(opts, fakeResolver{name: "host-a"}, "addr", "", m)
	require.Equal(t, "already-set", m.Host)
	require.Equal(t, "host-a", m.HostFrom, "HOST_FROM is always bound regardless of keep_hostname")
}

func TestMangleOverridesWin(t *testing.T) {
	opts := &Options{ChainHostnames: true, ProgramOverride: "forced-prog", HostOverride: "forced-host"}
	m := &Message{}
	mangle(opts, fakeResolver{name: "host-a"}, "addr", "", m)
	require.Equal(t, "forced-host", m.Host)
	require.Equal(t, "forced-prog", m.Program)
}

func TestMangleClampsHostLength(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	opts := &Options{SimpleHostname: true}
	m := &Message{}
	mangle(opts, fakeResolver{name: string(long)}, "addr", "", m)
	require.Len(t, m.Host, maxHostLen)
}

func TestMangleTagsApplied(t *testing.T) {
	opts := &Options{Tags: []string{"tag1", "tag2"}, SourceGroupTag: "grp"}
	m := &Message{}
	mangle(opts, fakeResolver{name: "h"}, "addr", "", m)
	require.True(t, m.HasTag("tag1"))
	require.True(t, m.HasTag("tag2"))
	require.True(t, m.HasTag("grp"))
}

func TestMangleKeepTimestamp(t *testing.T) {
	opts := &Options{KeepTimestamp: true}
	m := &Message{}
	m.OriginStamp = m.OriginStamp.Add(1) // sentinel != zero ReceiveStamp
	mangle(opts, fakeResolver{name: "h"}, "addr", "", m)
	require.NotEqual(t, m.ReceiveStamp, m.OriginStamp)
}

func TestMangleDropsTimestampWhenNotKept(t *testing.T) {
	opts := &Options{}
	m := &Message{}
	m.OriginStamp = m.OriginStamp.Add(1)
	mangle(opts, fakeResolver{name: "h"}, "addr", "", m)
	require.Equal(t, m.ReceiveStamp, m.OriginStamp)
}
