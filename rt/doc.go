// Package rt implements the object-model runtime that translated programs
// link against.
//
// This package contains:
//   - The Traceable/Tracer protocol used by the collector's mark phase
//   - Object, the embeddable base carrying a monitor slot
//   - Thread and Frame: per-thread, index-addressed root-scanning chains
//   - GlobalRef: typed roots living outside any call frame
//   - NullCheck/Cast/InstanceOf safety barriers and failure unwinding
//   - Numeric helpers reproducing the source language's operator semantics
package rt
