//go:build !amd64 && !arm64

package simd

// No SIMD flags are probed on other architectures; hostFeatures stays zero.
