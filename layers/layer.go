package layers

import "fmt"

// Kind identifies a primitive layer type.
type Kind int

// The closed set of primitive layer kinds the runtime accepts.
const (
	FullyConnected Kind = iota
	Bias
	Activation
	Softmax
	Convolution
	BinaryConvolution
	Pooling
	BatchNormalization
	Scaling
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case FullyConnected:
		return "FullyConnected"
	case Bias:
		return "Bias"
	case Activation:
		return "Activation"
	case Softmax:
		return "Softmax"
	case Convolution:
		return "Convolution"
	case BinaryConvolution:
		return "BinaryConvolution"
	case Pooling:
		return "Pooling"
	case BatchNormalization:
		return "BatchNormalization"
	case Scaling:
		return "Scaling"
	default:
		return "Unknown"
	}
}

// Layer is a primitive inference layer ready for the runtime's model builder.
type Layer interface {
	Kind() Kind
	Parameters() Parameters
}

// ActivationKind tags an activation layer's nonlinearity.
type ActivationKind int

// Supported activation nonlinearities.
const (
	ReLU ActivationKind = iota
	LeakyReLU
	ParametricReLU
)

// String returns a human-readable activation name.
func (a ActivationKind) String() string {
	switch a {
	case ReLU:
		return "relu"
	case LeakyReLU:
		return "leaky"
	case ParametricReLU:
		return "prelu"
	default:
		return "unknown"
	}
}

// PoolingFunction selects the reduction a pooling layer applies.
type PoolingFunction int

// Supported pooling functions.
const (
	MaxPooling PoolingFunction = iota
	MeanPooling
)

// String returns a human-readable pooling function name.
func (p PoolingFunction) String() string {
	if p == MaxPooling {
		return "max"
	}
	return "mean"
}

// ConvolutionMethod selects the runtime's convolution implementation.
type ConvolutionMethod int

// Supported convolution implementations.
const (
	Unrolled ConvolutionMethod = iota
	Simple
)

// BinaryConvolutionMethod selects the runtime's binary convolution
// implementation.
type BinaryConvolutionMethod int

// Supported binary convolution implementations.
const (
	Bitwise BinaryConvolutionMethod = iota
)

// BinaryWeightsScale selects how binarized weights are rescaled.
type BinaryWeightsScale int

// Supported binary weight scaling modes.
const (
	ScaleNone BinaryWeightsScale = iota
	ScaleMean
)

// ConvolutionalParameters are the kind-specific settings of a convolution.
type ConvolutionalParameters struct {
	ReceptiveField  int
	Stride          int
	Method          ConvolutionMethod
	FilterBatchSize int
}

// BinaryConvolutionalParameters are the kind-specific settings of a binary
// convolution.
type BinaryConvolutionalParameters struct {
	ReceptiveField int
	Stride         int
	Method         BinaryConvolutionMethod
	Scale          BinaryWeightsScale
}

// PoolingParameters are the window settings of a pooling layer.
type PoolingParameters struct {
	Size   int
	Stride int
}

// Tensor is a rank-3 float buffer in row-major row, column, channel order,
// as extracted from a source parameter.
type Tensor struct {
	Shape Shape
	Data  []float32
}

// NewTensor wraps data in a Tensor, validating the element count.
func NewTensor(shape Shape, data []float32) (*Tensor, error) {
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("tensor data has %d elements, shape %s needs %d", len(data), shape, shape.Size())
	}
	return &Tensor{Shape: shape, Data: data}, nil
}

// FullyConnectedLayer multiplies its input by a dense weight matrix.
type FullyConnectedLayer struct {
	Params  Parameters
	Weights *Tensor
}

// Kind returns FullyConnected.
func (l *FullyConnectedLayer) Kind() Kind { return FullyConnected }

// Parameters returns the resolved boundary quadruple.
func (l *FullyConnectedLayer) Parameters() Parameters { return l.Params }

// BiasLayer adds a per-channel bias vector.
type BiasLayer struct {
	Params Parameters
	Bias   []float32
}

// Kind returns Bias.
func (l *BiasLayer) Kind() Kind { return Bias }

// Parameters returns the resolved boundary quadruple.
func (l *BiasLayer) Parameters() Parameters { return l.Params }

// ActivationLayer applies an element-wise nonlinearity.
type ActivationLayer struct {
	Params     Parameters
	Activation ActivationKind
}

// Kind returns Activation.
func (l *ActivationLayer) Kind() Kind { return Activation }

// Parameters returns the resolved boundary quadruple.
func (l *ActivationLayer) Parameters() Parameters { return l.Params }

// PReLUActivationLayer applies a parametric ReLU with per-channel slopes.
type PReLUActivationLayer struct {
	Params Parameters
	Slopes *Tensor
}

// Kind returns Activation.
func (l *PReLUActivationLayer) Kind() Kind { return Activation }

// Parameters returns the resolved boundary quadruple.
func (l *PReLUActivationLayer) Parameters() Parameters { return l.Params }

// SoftmaxLayer normalizes its input into a probability distribution.
type SoftmaxLayer struct {
	Params Parameters
}

// Kind returns Softmax.
func (l *SoftmaxLayer) Kind() Kind { return Softmax }

// Parameters returns the resolved boundary quadruple.
func (l *SoftmaxLayer) Parameters() Parameters { return l.Params }

// ConvolutionalLayer applies a spatial convolution.
type ConvolutionalLayer struct {
	Params  Parameters
	Conv    ConvolutionalParameters
	Weights *Tensor
}

// Kind returns Convolution.
func (l *ConvolutionalLayer) Kind() Kind { return Convolution }

// Parameters returns the resolved boundary quadruple.
func (l *ConvolutionalLayer) Parameters() Parameters { return l.Params }

// BinaryConvolutionalLayer applies a convolution over binarized weights.
type BinaryConvolutionalLayer struct {
	Params  Parameters
	Conv    BinaryConvolutionalParameters
	Weights *Tensor
}

// Kind returns BinaryConvolution.
func (l *BinaryConvolutionalLayer) Kind() Kind { return BinaryConvolution }

// Parameters returns the resolved boundary quadruple.
func (l *BinaryConvolutionalLayer) Parameters() Parameters { return l.Params }

// PoolingLayer reduces spatial windows with max or mean.
type PoolingLayer struct {
	Params   Parameters
	Pool     PoolingParameters
	Function PoolingFunction
}

// Kind returns Pooling.
func (l *PoolingLayer) Kind() Kind { return Pooling }

// Parameters returns the resolved boundary quadruple.
func (l *PoolingLayer) Parameters() Parameters { return l.Params }

// BatchNormalizationLayer normalizes with running statistics. Epsilon is
// added to the variance before normalizing.
type BatchNormalizationLayer struct {
	Params   Parameters
	Mean     []float32
	Variance []float32
	Epsilon  float32
}

// Kind returns BatchNormalization.
func (l *BatchNormalizationLayer) Kind() Kind { return BatchNormalization }

// Parameters returns the resolved boundary quadruple.
func (l *BatchNormalizationLayer) Parameters() Parameters { return l.Params }

// ScalingLayer multiplies each channel by a scale factor.
type ScalingLayer struct {
	Params Parameters
	Scales []float32
}

// Kind returns Scaling.
func (l *ScalingLayer) Kind() Kind { return Scaling }

// Parameters returns the resolved boundary quadruple.
func (l *ScalingLayer) Parameters() Parameters { return l.Params }
