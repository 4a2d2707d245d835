package model

const (
	MessageSuccess       = "Prediction successful!"
	MessageNotRecognized = "Sign not recognized—please try one of the supported signs!"
)

type Manifest struct {
	Architecture        string    `json:"architecture"`
	InputName           string    `json:"input_name"`
	OutputName          string    `json:"output_name"`
	InputShape          []int64   `json:"input_shape"`
	OutputShape         []int64   `json:"output_shape"`
	Classes             []string  `json:"classes"`
	ImageSize           int       `json:"image_size"`
	Mean                []float32 `json:"mean"`
	Std                 []float32 `json:"std"`
	ConfidenceThreshold float64   `json:"confidence_threshold"`
	Checksum            string    `json:"checksum,omitempty"`
}

// PredictionRequest is the body of POST /predict. Image is a pointer so a
// missing field can be told apart from an empty string.
type PredictionRequest struct {
	Image *string `json:"image" binding:"required"`
}

type PredictionResponse struct {
	Sign    string `json:"sign"`
	Message string `json:"message"`
}

// Prediction is the outcome of one forward pass after softmax and
// thresholding. Label is empty when Recognized is false.
type Prediction struct {
	Index         int
	Label         string
	Confidence    float64
	Probabilities []float64
	Recognized    bool
}

func (p *Prediction) Response() PredictionResponse {
	if !p.Recognized {
		return PredictionResponse{Sign: "", Message: MessageNotRecognized}
	}
	return PredictionResponse{Sign: p.Label, Message: MessageSuccess}
}
