// Package fault defines the error taxonomy shared by all drivevault layers.
//
// Three outcomes are distinguished everywhere:
//   - operational errors: wrapped failures from crypto primitives, I/O or
//     decoding, returned with their cause preserved via %w
//   - correctable errors: violated preconditions attributable to the
//     calling code, detectable via IsCorrectable
//   - aborted: cooperative cancellation through context, detectable via
//     IsAborted and propagated without additional wrapping
package fault
