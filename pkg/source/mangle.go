package source

// HostResolver resolves a sender address to a display name. DNS/hosts
// lookup is a transport concern and out of scope for the core (spec
// §4.4); the mangle step only depends on this interface.
type HostResolver interface {
	Resolve(senderAddr string) string
}

// maxHostLen is the clamp applied to the computed HOST field (spec
// §4.4: "Clamp to 255 chars and ensure NUL-termination" -- the NUL
// terminator is a C-ism from the original source; in Go the clamp to
// 255 bytes is the behavior that survives).
const maxHostLen = 255

// QueueCallback runs after the message is mangled, tracked and has taken
// its window credit, and before it is queued downstream. Returning
// false drops the message (spec §4.4: "if any returns false,
// drop the message with ack type Processed").
type QueueCallback func(msg *Message) bool

// mangle applies the hostname/timestamp/tag/override rules of spec
// §4.4 to msg in place. senderAddr comes from the transport record;
// origHost is this same message's own pre-mangle HOST field (as
// embedded by an upstream relay hop or parser, never a different
// message's computed host); resolver is the source's configured
// HostResolver.
//
// Mangle is deterministic given identical options, source, and input
// message (spec §8.8): no wall-clock reads happen here beyond what the
// caller already stamped into msg.ReceiveStamp.
func mangle(opts *Options, resolver HostResolver, senderAddr, origHost string, msg *Message) {
	if !opts.KeepTimestamp {
		msg.OriginStamp = msg.ReceiveStamp
	}

	resolved := resolver.Resolve(senderAddr)
	msg.HostFrom = resolved

	if !opts.KeepHostname || msg.Host == "" {
		msg.Host = computeHost(opts, resolved, origHost)
	}

	if opts.ProgramOverride != "" {
		msg.Program = opts.ProgramOverride
	}
	if opts.HostOverride != "" {
		msg.Host = opts.HostOverride
	}

	for _, tag := range opts.Tags {
		msg.AddTag(tag)
	}
	if opts.SourceGroupTag != "" {
		msg.AddTag(opts.SourceGroupTag)
	}
}

// computeHost implements the chain-hostnames policy of spec §4.4.
// origHost is the message's own HOST value as it arrived, before this
// hop's mangling -- the chain is built by prepending each hop's own
// prior value, never a different message's.
func computeHost(opts *Options, resolved, origHost string) string {
	var host string
	switch {
	case opts.SimpleHostname:
		host = resolved
	case opts.LocalSource:
		host = opts.SourceGroupTag + "@" + resolved
	case opts.ChainHostnames && origHost == "":
		host = resolved + "/" + resolved
	case opts.ChainHostnames:
		host = origHost + "/" + resolved
	default:
		host = resolved
	}
	if len(host) > maxHostLen {
		host = host[:maxHostLen]
	}
	return host
}
