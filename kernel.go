package fractal

import "github.com/gogpu/fractal/internal/gpu"

// KernelSource returns the WGSL source of the escape-time compute kernel.
// It evaluates one tile per dispatch and matches the CPU evaluator up to
// float32 precision.
func KernelSource() string {
	return gpu.Source()
}

// CompileKernel compiles the escape-time kernel to a SPIR-V binary,
// ready to be loaded as a compute shader module.
func CompileKernel() ([]byte, error) {
	return gpu.CompileBytes()
}
