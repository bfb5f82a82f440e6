// Package interp reads sample buffers between sample points. Grain
// players in package effects use it to replay their ring buffers at
// non-integer speeds.
package interp
