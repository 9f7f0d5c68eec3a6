package shape

import (
	"fmt"
)

// Construction error codes.
const (
	CodeInvalidDimension         = "invalid_dimension"
	CodeInvalidScale             = "invalid_scale"
	CodeInvalidRotation          = "invalid_rotation"
	CodeMissingInnerShape        = "missing_inner_shape"
	CodeTooFewChildren           = "too_few_children"
	CodeSubShapeIDBitsExceeded   = "sub_shape_id_bits_exceeded"
	CodeSampleCountNotPowerOfTwo = "sample_count_not_power_of_two"
	CodeSampleCountTooLow        = "sample_count_too_low"
	CodeSampleCountTooHigh       = "sample_count_too_high"
	CodeSampleArraySize          = "sample_array_size"
	CodeInvalidBlockSize         = "invalid_block_size"
	CodeTooManyMaterials         = "too_many_materials"
	CodeMaterialIndexOutOfRange  = "material_index_out_of_range"
	CodeMaterialIndicesSize      = "material_indices_size"
)

// ConstructionError reports why a shape could not be built. No shape is
// returned alongside it.
type ConstructionError struct {
	Shape   SubType
	Code    string
	Message string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: %s (shape: %s)", e.Code, e.Message, e.Shape)
}

// NewConstructionError formats a ConstructionError.
func NewConstructionError(s SubType, code, format string, args ...any) *ConstructionError {
	return &ConstructionError{Shape: s, Code: code, Message: fmt.Sprintf(format, args...)}
}
