package profile

import (
	"math"
	"strconv"
)

// Profile holds the answers collected during onboarding.
type Profile struct {
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	Weight        float64 `json:"weight"`
	Height        int     `json:"height"`
	Goals         string  `json:"goals"`
	Gender        string  `json:"gender,omitempty"`
	ActivityLevel string  `json:"activity_level,omitempty"`
	DietaryPrefs  string  `json:"dietary_prefs,omitempty"`
}

// Set stores a validated value for field.
func (p *Profile) Set(field Field, v Value) {
	switch field {
	case FieldName:
		p.Name = v.Text
	case FieldAge:
		p.Age = v.Int
	case FieldWeight:
		p.Weight = v.Float
	case FieldHeight:
		p.Height = v.Int
	case FieldGoals:
		p.Goals = v.Text
	case FieldGender:
		p.Gender = v.Text
	case FieldActivityLevel:
		p.ActivityLevel = v.Text
	case FieldDietaryPrefs:
		p.DietaryPrefs = v.Text
	}
}

// WeightString renders the weight without trailing zeros, e.g. "80" or "72.5".
func (p Profile) WeightString() string {
	return strconv.FormatFloat(p.Weight, 'f', -1, 64)
}

// Metrics are derived from weight and height.
type Metrics struct {
	BMI         float64
	BMICategory string
	Calories    int
	Protein     int
}

// ComputeMetrics returns BMI (one decimal), its category, and daily calorie
// and protein targets.
func ComputeMetrics(p Profile) Metrics {
	m := Metrics{
		Calories: int(math.Round(p.Weight * 30)),
		Protein:  int(math.Round(p.Weight * 1.6)),
	}
	if p.Height > 0 {
		h := float64(p.Height) / 100
		m.BMI = math.Round(p.Weight/(h*h)*10) / 10
	}
	switch {
	case m.BMI < 18.5:
		m.BMICategory = "Underweight"
	case m.BMI < 25:
		m.BMICategory = "Healthy"
	case m.BMI < 30:
		m.BMICategory = "Overweight"
	default:
		m.BMICategory = "Obese"
	}
	return m
}

// View is the data handed to message templates that describe a profile.
type View struct {
	Profile Profile
	Metrics Metrics
}

func NewView(p Profile) View {
	return View{Profile: p, Metrics: ComputeMetrics(p)}
}
