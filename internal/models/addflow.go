package models

// AddFlowStep identifies which answer the add dialogue is waiting for.
type AddFlowStep string

const (
	AddFlowStepName     AddFlowStep = "NAME"
	AddFlowStepValue    AddFlowStep = "VALUE"
	AddFlowStepQuantity AddFlowStep = "QUANTITY"
)

// AddFlowState is the per-sender record of the guided /add dialogue.
// Steps only ever advance NAME -> VALUE -> QUANTITY; the record is removed
// once the accumulated item is submitted, whether that submission succeeds
// or not.
type AddFlowState struct {
	Step     AddFlowStep `bson:"step" json:"step"`
	Name     string      `bson:"name,omitempty" json:"name,omitempty"`
	Value    float64     `bson:"value,omitempty" json:"value,omitempty"`
	Quantity int         `bson:"quantity,omitempty" json:"quantity,omitempty"`
}
