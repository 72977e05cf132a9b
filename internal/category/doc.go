// Package category maps PII category tags to synthesis strategies.
//
// A Registry associates each tag (e.g. "email", "ssn") with exactly one
// strategy and one declared output kind. Registries are expected to be
// fully populated at startup; scrub sessions only read them. Reads are
// guarded by an RWMutex so a misbehaving late registration cannot
// corrupt concurrent traversals, but registering during an active scrub
// is unsupported.
package category
