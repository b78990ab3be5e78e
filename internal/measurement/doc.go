// Package measurement holds measurement point schemas and turns injected
// samples into protocol data lines.
//
// A Registry moves through two states. Before Freeze, points are declared:
// a name, an ordered field list and the channels they report to. Freeze
// locks the schemas, resolves channel names through a channel.Directory,
// gives every channel its header and announces each bound schema with a
// per-channel index. After Freeze, Inject formats samples and hands them to
// the bound channels. Unfreeze returns to the declaration state so the
// registry can be frozen again against a new directory.
package measurement
