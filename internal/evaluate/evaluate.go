package evaluate

import (
	"fmt"
	"sort"
)

// Metrics summarizes classifier quality on a held-out set. ROCAUC is nil
// when only one class is present in the true labels.
type Metrics struct {
	Accuracy  float64  `json:"accuracy" msgpack:"accuracy"`
	Precision float64  `json:"precision" msgpack:"precision"`
	Recall    float64  `json:"recall" msgpack:"recall"`
	ROCAUC    *float64 `json:"roc_auc" msgpack:"roc_auc"`
	Rows      int      `json:"rows" msgpack:"rows"`
	Positives int      `json:"positives" msgpack:"positives"`
}

// Compute scores hard predictions and positive-class scores against yTrue.
// Precision and recall are 0 when their denominator is 0.
func Compute(yTrue, yPred []int, scores []float64) (Metrics, error) {
	if len(yTrue) != len(yPred) || len(yTrue) != len(scores) {
		return Metrics{}, fmt.Errorf("length mismatch: %d labels, %d predictions, %d scores",
			len(yTrue), len(yPred), len(scores))
	}

	var tp, fp, fn, correct, pos int
	for i, y := range yTrue {
		p := yPred[i]
		if y == p {
			correct++
		}
		switch {
		case y == 1 && p == 1:
			tp++
		case y == 0 && p == 1:
			fp++
		case y == 1 && p == 0:
			fn++
		}
		if y == 1 {
			pos++
		}
	}

	m := Metrics{Rows: len(yTrue), Positives: pos}
	if len(yTrue) > 0 {
		m.Accuracy = float64(correct) / float64(len(yTrue))
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if auc, ok := ROCAUC(yTrue, scores); ok {
		m.ROCAUC = &auc
	}
	return m, nil
}

// ROCAUC is the area under the ROC curve via the rank-sum statistic, with
// tied scores sharing their average rank. ok is false when yTrue holds a
// single class.
func ROCAUC(yTrue []int, scores []float64) (auc float64, ok bool) {
	n := len(yTrue)
	var nPos int
	for _, y := range yTrue {
		if y == 1 {
			nPos++
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0, false
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	var rankSum float64
	for i := 0; i < n; {
		j := i
		for j < n && scores[order[j]] == scores[order[i]] {
			j++
		}
		// ranks i+1..j share their mean
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			if yTrue[order[k]] == 1 {
				rankSum += avg
			}
		}
		i = j
	}

	u := rankSum - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), true
}

// String renders the metrics the way the train command prints them.
func (m Metrics) String() string {
	auc := "n/a"
	if m.ROCAUC != nil {
		auc = fmt.Sprintf("%.4f", *m.ROCAUC)
	}
	return fmt.Sprintf("accuracy=%.4f precision=%.4f recall=%.4f roc_auc=%s",
		m.Accuracy, m.Precision, m.Recall, auc)
}
