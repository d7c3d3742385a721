package scorers

import (
	"errors"
	"fmt"
	"math"

	"github.com/ahrav/go-ponder/internal/ports"
)

// Registry tags for evaluators.
const (
	LinearType  = "linear"
	PowerType   = "power"
	SigmoidType = "sigmoid"
)

var (
	// ErrDegenerateRange is returned when an evaluator's x range is empty.
	ErrDegenerateRange = errors.New("evaluator x range must not be empty")

	// ErrNegativeExponent is returned for a power curve with exponent < 0,
	// which is undefined at the start of the range.
	ErrNegativeExponent = errors.New("power exponent must not be negative")
)

var (
	_ ports.Evaluator = (*Linear)(nil)
	_ ports.Evaluator = (*Power)(nil)
	_ ports.Evaluator = (*Sigmoid)(nil)
)

// Curve is the shared configuration of the response curves: inputs are
// clamped to [XA, XB] and mapped onto [YA, YB].
type Curve struct {
	XA float64 `yaml:"xa" json:"xa"`
	YA float64 `yaml:"ya" json:"ya"`
	XB float64 `yaml:"xb" json:"xb"`
	YB float64 `yaml:"yb" json:"yb"`
}

// UnitCurve maps [0,1] onto [0,1].
func UnitCurve() Curve { return Curve{XA: 0, YA: 0, XB: 1, YB: 1} }

func (c Curve) check() error {
	for name, v := range map[string]float64{"xa": c.XA, "ya": c.YA, "xb": c.XB, "yb": c.YB} {
		if err := checkFinite(name, v); err != nil {
			return err
		}
	}
	if c.XA == c.XB {
		return fmt.Errorf("%w: xa=xb=%v", ErrDegenerateRange, c.XA)
	}
	return nil
}

// Linear interpolates between (XA, YA) and (XB, YB).
type Linear struct {
	curve    Curve
	dyOverDx float64
}

// NewLinear creates a linear response curve.
func NewLinear(curve Curve) (*Linear, error) {
	if err := curve.check(); err != nil {
		return nil, err
	}
	return &Linear{curve: curve, dyOverDx: (curve.YB - curve.YA) / (curve.XB - curve.XA)}, nil
}

// Evaluate implements ports.Evaluator.
func (l *Linear) Evaluate(x float64) float64 {
	c := l.curve
	return clamp(c.YA+l.dyOverDx*(clamp(x, c.XA, c.XB)-c.XA), c.YA, c.YB)
}

// Power raises the normalised input to Exponent:
// y = YA + (YB-YA) * ((x-XA)/(XB-XA))^Exponent. Exponent must be >= 0.
type Power struct {
	curve    Curve
	exponent float64
}

// NewPower creates a power response curve.
func NewPower(curve Curve, exponent float64) (*Power, error) {
	if err := curve.check(); err != nil {
		return nil, err
	}
	if err := checkFinite("power", exponent); err != nil {
		return nil, err
	}
	if exponent < 0 {
		return nil, fmt.Errorf("power: %w (got %v)", ErrNegativeExponent, exponent)
	}
	return &Power{curve: curve, exponent: exponent}, nil
}

// Evaluate implements ports.Evaluator.
func (p *Power) Evaluate(x float64) float64 {
	c := p.curve
	t := (clamp(x, c.XA, c.XB) - c.XA) / (c.XB - c.XA)
	return c.YA + (c.YB-c.YA)*math.Pow(t, p.exponent)
}

// Sigmoid is a normalised tunable sigmoid. K in (-1, 1) controls the
// shape: 0 is linear, positive values give an S curve, negative values an
// inverted one. K is clamped to ±0.99999.
type Sigmoid struct {
	curve     Curve
	k         float64
	twoOverDx float64
	xMean     float64
	yMean     float64
	dyOverTwo float64
	oneMinusK float64
}

// NewSigmoid creates a sigmoid response curve.
func NewSigmoid(curve Curve, k float64) (*Sigmoid, error) {
	if err := curve.check(); err != nil {
		return nil, err
	}
	if err := checkFinite("k", k); err != nil {
		return nil, err
	}
	k = clamp(k, -0.99999, 0.99999)
	return &Sigmoid{
		curve:     curve,
		k:         k,
		twoOverDx: math.Abs(2 / (curve.XB - curve.XA)),
		xMean:     (curve.XA + curve.XB) / 2,
		yMean:     (curve.YA + curve.YB) / 2,
		dyOverTwo: (curve.YB - curve.YA) / 2,
		oneMinusK: 1 - k,
	}, nil
}

// Evaluate implements ports.Evaluator.
func (s *Sigmoid) Evaluate(x float64) float64 {
	c := s.curve
	d := clamp(x, c.XA, c.XB) - s.xMean
	numerator := s.twoOverDx * d * s.oneMinusK
	denominator := s.k*(1-2*math.Abs(s.twoOverDx*d)) + 1
	return clamp(s.dyOverTwo*(numerator/denominator)+s.yMean, c.YA, c.YB)
}

// curveKeys are the parameters every curve evaluator reads.
var curveKeys = []string{"xa", "ya", "xb", "yb"}

// curveParams reads xa/ya/xb/yb, defaulting to the unit curve.
func curveParams(params map[string]any) (Curve, error) {
	c := UnitCurve()
	var err error
	if c.XA, err = FloatParam(params, "xa", c.XA); err != nil {
		return Curve{}, err
	}
	if c.YA, err = FloatParam(params, "ya", c.YA); err != nil {
		return Curve{}, err
	}
	if c.XB, err = FloatParam(params, "xb", c.XB); err != nil {
		return Curve{}, err
	}
	if c.YB, err = FloatParam(params, "yb", c.YB); err != nil {
		return Curve{}, err
	}
	return c, nil
}

// CreateLinear builds a Linear evaluator from parameters.
func CreateLinear(params map[string]any) (*Linear, error) {
	if err := ports.CheckParameters("evaluator "+LinearType, params, curveKeys...); err != nil {
		return nil, err
	}
	c, err := curveParams(params)
	if err != nil {
		return nil, err
	}
	return NewLinear(c)
}

// CreatePower builds a Power evaluator from parameters ("power" defaults to 2).
func CreatePower(params map[string]any) (*Power, error) {
	if err := ports.CheckParameters("evaluator "+PowerType, params, append(curveKeys, "power")...); err != nil {
		return nil, err
	}
	c, err := curveParams(params)
	if err != nil {
		return nil, err
	}
	exp, err := FloatParam(params, "power", 2)
	if err != nil {
		return nil, err
	}
	return NewPower(c, exp)
}

// CreateSigmoid builds a Sigmoid evaluator from parameters ("k" defaults to 0.5).
func CreateSigmoid(params map[string]any) (*Sigmoid, error) {
	if err := ports.CheckParameters("evaluator "+SigmoidType, params, append(curveKeys, "k")...); err != nil {
		return nil, err
	}
	c, err := curveParams(params)
	if err != nil {
		return nil, err
	}
	k, err := FloatParam(params, "k", 0.5)
	if err != nil {
		return nil, err
	}
	return NewSigmoid(c, k)
}
