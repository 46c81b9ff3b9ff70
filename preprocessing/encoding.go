package preprocessing

import (
	"strings"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// Experiencia の序数エンコーディング
const (
	ExperienciaBaja  = 0
	ExperienciaMedia = 1
	ExperienciaAlta  = 2
)

// ExperienciaLevels はコード順のラベル一覧（フォームの選択肢にも使う）
var ExperienciaLevels = []string{"Baja", "Media", "Alta"}

var experienciaCodes = map[string]int{
	"Baja":  ExperienciaBaja,
	"Media": ExperienciaMedia,
	"Alta":  ExperienciaAlta,
}

// EncodeExperiencia はフォーム入力の Experiencia を序数に変換する。
// 未知の値は Media(1) として扱う。
func EncodeExperiencia(s string) int {
	if code, ok := experienciaCodes[strings.TrimSpace(s)]; ok {
		return code
	}
	return ExperienciaMedia
}

// ParseExperiencia はデータセット読み込み用の厳密版。未知の値はエラーになる。
func ParseExperiencia(s string) (int, error) {
	if code, ok := experienciaCodes[strings.TrimSpace(s)]; ok {
		return code, nil
	}
	return 0, errors.NewValidationError("Experiencia", "expected one of Baja, Media, Alta", s)
}
