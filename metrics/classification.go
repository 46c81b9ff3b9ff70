package metrics

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// Accuracy は正解率（予測ラベルが正解と一致する割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(t)), nil
}

func checkBinaryLabels(op string, y []float64) error {
	for i, v := range y {
		if v != 0 && v != 1 {
			return errors.Wrapf(errors.ErrNotBinary, "%s: label %v at index %d", op, v, i)
		}
	}
	return nil
}

// AUC は二値分類の ROC 曲線下面積を計算する。
// 同点のスコアは平均順位で扱う（Mann-Whitney U 統計量）。
// 片方のクラスしか存在しない場合は定義できないため 0.5 を返し、警告を出す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	t, s, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("AUC", t); err != nil {
		return 0, err
	}

	n := len(t)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return s[order[a]] < s[order[b]] })

	// 同点グループには平均順位を割り当てる
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && s[order[j+1]] == s[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var nPos, nNeg int
	var rankSum float64
	for i, label := range t {
		if label == 1 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	u := rankSum - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// BinaryLogLoss は二値分類の対数損失（交差エントロピー）を計算する。
// 確率は log(0) を避けるため [eps, 1-eps] にクリップされる。
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	t, p, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("BinaryLogLoss", t); err != nil {
		return 0, err
	}

	var loss float64
	for i := range t {
		if t[i] == 1 {
			loss -= errors.StabilizeLog(p[i])
		} else {
			loss -= errors.StabilizeLog(1 - p[i])
		}
	}
	return loss / float64(len(t)), nil
}

// ConfusionMatrix は混同行列。行が正解ラベル、列が予測ラベルで、
// 並びは Labels の順。
type ConfusionMatrix struct {
	Labels []int
	Counts [][]int
}

// NewConfusionMatrix は混同行列を作成する。labels が nil の場合は
// yTrue と yPred に現れるラベルを昇順で使う。labels にないラベルは無視される。
func NewConfusionMatrix(yTrue, yPred *mat.VecDense, labels []int) (ConfusionMatrix, error) {
	t, p, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return ConfusionMatrix{}, err
	}
	if labels == nil {
		labels = uniqueLabels(t, p)
	}
	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range t {
		ti, okT := pos[int(t[i])]
		pi, okP := pos[int(p[i])]
		if okT && okP {
			counts[ti][pi]++
		}
	}
	return ConfusionMatrix{Labels: slices.Clone(labels), Counts: counts}, nil
}

// At は正解ラベル i 番目・予測ラベル j 番目の件数を返す
func (cm ConfusionMatrix) At(i, j int) int { return cm.Counts[i][j] }

// Total は全件数を返す
func (cm ConfusionMatrix) Total() int {
	total := 0
	for _, row := range cm.Counts {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// Dense は描画用に float64 の行列へ変換する
func (cm ConfusionMatrix) Dense() *mat.Dense {
	k := len(cm.Labels)
	d := mat.NewDense(k, k, nil)
	for i := range cm.Counts {
		for j, v := range cm.Counts[i] {
			d.Set(i, j, float64(v))
		}
	}
	return d
}

func uniqueLabels(ys ...[]float64) []int {
	seen := make(map[int]struct{})
	for _, y := range ys {
		for _, v := range y {
			seen[int(v)] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// ClassScores はクラスごとの適合率・再現率・F1・サポート
type ClassScores struct {
	Label     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// PrecisionRecallFScoreSupport は混同行列からクラスごとの指標を計算する。
// 分母が 0 になる指標は 0 とし、UndefinedMetricWarning を出す。
func PrecisionRecallFScoreSupport(cm ConfusionMatrix) []ClassScores {
	k := len(cm.Labels)
	out := make([]ClassScores, k)
	for c := 0; c < k; c++ {
		tp := cm.Counts[c][c]
		var predicted, actual int
		for i := 0; i < k; i++ {
			predicted += cm.Counts[i][c]
			actual += cm.Counts[c][i]
		}

		s := ClassScores{Label: cm.Labels[c], Support: actual}
		if predicted > 0 {
			s.Precision = float64(tp) / float64(predicted)
		} else {
			errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples for a label", 0))
		}
		if actual > 0 {
			s.Recall = float64(tp) / float64(actual)
		} else {
			errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples for a label", 0))
		}
		s.F1 = errors.SafeDivide(2*s.Precision*s.Recall, s.Precision+s.Recall)
		out[c] = s
	}
	return out
}
