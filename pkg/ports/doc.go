// Package ports defines interfaces for external dependencies of the frame pipeline:
// video decoding, transcoding, detection models, chat APIs, the filesystem,
// rendering, logging and run instrumentation.
package ports
