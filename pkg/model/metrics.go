package model

import (
	"fmt"
	"strings"
)

// Accuracy is the fraction of positions where yPred equals yTrue. Empty or
// misaligned input scores 0.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 scores label as the positive class. Undefined ratios
// (no predicted or no actual positives) are 0.
func PrecisionRecallF1(yTrue, yPred []int, label int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		switch {
		case yPred[i] == label && yTrue[i] == label:
			tp++
		case yPred[i] == label:
			fp++
		case yTrue[i] == label:
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ClassMetrics holds one row of a classification report.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Report is a per-class precision/recall/F1 breakdown with macro and
// support-weighted averages.
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
}

// NewReport scores every label present in either yTrue or yPred.
func NewReport(yTrue, yPred []int) Report {
	labels := uniqueSorted(append(append([]int(nil), yTrue...), yPred...))
	r := Report{
		Accuracy:    Accuracy(yTrue, yPred),
		MacroAvg:    ClassMetrics{Label: "macro avg", Support: len(yTrue)},
		WeightedAvg: ClassMetrics{Label: "weighted avg", Support: len(yTrue)},
	}
	for _, label := range labels {
		p, rc, f := PrecisionRecallF1(yTrue, yPred, label)
		support := 0
		for _, v := range yTrue {
			if v == label {
				support++
			}
		}
		r.Classes = append(r.Classes, ClassMetrics{
			Label:     fmt.Sprint(label),
			Precision: p,
			Recall:    rc,
			F1:        f,
			Support:   support,
		})
	}

	if k := float64(len(r.Classes)); k > 0 {
		for _, c := range r.Classes {
			r.MacroAvg.Precision += c.Precision / k
			r.MacroAvg.Recall += c.Recall / k
			r.MacroAvg.F1 += c.F1 / k
		}
	}
	if n := float64(len(yTrue)); n > 0 {
		for _, c := range r.Classes {
			w := float64(c.Support) / n
			r.WeightedAvg.Precision += c.Precision * w
			r.WeightedAvg.Recall += c.Recall * w
			r.WeightedAvg.F1 += c.F1 * w
		}
	}
	return r
}

// String renders the report as a fixed-width text table.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %9s %9s %9s %9s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		writeRow(&b, c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %9s %9s %9.2f %9d\n", "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	writeRow(&b, r.MacroAvg)
	writeRow(&b, r.WeightedAvg)
	return b.String()
}

func writeRow(b *strings.Builder, c ClassMetrics) {
	fmt.Fprintf(b, "%12s %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
}
