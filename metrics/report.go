package metrics

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// ReportRow は分類レポートの1行
type ReportRow struct {
	Name      string
	Precision float64
	Recall    float64
	F1        float64
	Support   int

	// IsAccuracy の行は F1 列に正解率だけを持つ
	IsAccuracy bool
}

// ClassificationReport はscikit-learnの classification_report 相当。
// 行はクラスごと、accuracy、macro avg、weighted avg の順。
type ClassificationReport struct {
	Rows     []ReportRow
	Accuracy float64
	Support  int
}

// NewClassificationReport は混同行列からレポートを作成する。
// names は cm.Labels と同じ順の表示名（nil の場合はラベル番号）。
func NewClassificationReport(cm ConfusionMatrix, names []string) (ClassificationReport, error) {
	if names != nil && len(names) != len(cm.Labels) {
		return ClassificationReport{}, errors.NewDimensionError("ClassificationReport", len(cm.Labels), len(names), 1)
	}
	total := cm.Total()
	if total == 0 {
		return ClassificationReport{}, errors.NewValueError("ClassificationReport", "empty confusion matrix")
	}

	scores := PrecisionRecallFScoreSupport(cm)
	rep := ClassificationReport{Support: total}

	var correct int
	var macro, weighted ReportRow
	for i, s := range scores {
		correct += cm.Counts[i][i]
		name := fmt.Sprint(s.Label)
		if names != nil {
			name = names[i]
		}
		rep.Rows = append(rep.Rows, ReportRow{
			Name:      name,
			Precision: s.Precision,
			Recall:    s.Recall,
			F1:        s.F1,
			Support:   s.Support,
		})

		macro.Precision += s.Precision
		macro.Recall += s.Recall
		macro.F1 += s.F1
		w := float64(s.Support) / float64(total)
		weighted.Precision += w * s.Precision
		weighted.Recall += w * s.Recall
		weighted.F1 += w * s.F1
	}
	k := float64(len(scores))
	macro.Precision /= k
	macro.Recall /= k
	macro.F1 /= k

	rep.Accuracy = float64(correct) / float64(total)
	macro.Name, macro.Support = "macro avg", total
	weighted.Name, weighted.Support = "weighted avg", total

	rep.Rows = append(rep.Rows,
		ReportRow{Name: "accuracy", F1: rep.Accuracy, Support: total, IsAccuracy: true},
		macro,
		weighted,
	)
	return rep, nil
}

// ClassificationReportFor は予測結果から直接レポートを作成する
func ClassificationReportFor(yTrue, yPred *mat.VecDense, labels []int, names []string) (ClassificationReport, ConfusionMatrix, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred, labels)
	if err != nil {
		return ClassificationReport{}, ConfusionMatrix{}, err
	}
	rep, err := NewClassificationReport(cm, names)
	return rep, cm, err
}

// Rounded は全ての値を decimals 桁に丸めたコピーを返す
func (r ClassificationReport) Rounded(decimals int) ClassificationReport {
	out := ClassificationReport{
		Rows:     make([]ReportRow, len(r.Rows)),
		Accuracy: errors.Round(r.Accuracy, decimals),
		Support:  r.Support,
	}
	for i, row := range r.Rows {
		row.Precision = errors.Round(row.Precision, decimals)
		row.Recall = errors.Round(row.Recall, decimals)
		row.F1 = errors.Round(row.F1, decimals)
		out.Rows[i] = row
	}
	return out
}

// Row は名前で行を探す
func (r ClassificationReport) Row(name string) (ReportRow, bool) {
	for _, row := range r.Rows {
		if row.Name == name {
			return row, true
		}
	}
	return ReportRow{}, false
}

// Format は classification_report と同じ体裁のテキストを返す
func (r ClassificationReport) Format(digits int) string {
	width := len("weighted avg")
	for _, row := range r.Rows {
		if n := utf8.RuneCountInString(row.Name); n > width {
			width = n
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, row := range r.Rows {
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(row.Name))
		if row.IsAccuracy {
			b.WriteString("\n")
			fmt.Fprintf(&b, "%s%s %9s %9s %9.*f %9d\n", pad, row.Name, "", "", digits, row.F1, row.Support)
			continue
		}
		fmt.Fprintf(&b, "%s%s %9.*f %9.*f %9.*f %9d\n", pad, row.Name,
			digits, row.Precision, digits, row.Recall, digits, row.F1, row.Support)
	}
	return b.String()
}
