package strategy

import "fmt"

func NewEvaluator(cfg Config) (Evaluator, error) {
	switch cfg.Name {
	case "donchian", "":
		return NewDonchian(cfg), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Name)
	}
}
