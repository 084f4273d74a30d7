package scoring

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// 英文停用词
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at be
because been before being below between both but by can could did do does doing down during each
few for from further had has have having he her here hers herself him himself his how i if in into
is it its itself just me more most my myself no nor not now of off on once only or other our ours
ourselves out over own same she should so some such than that the their theirs them themselves then
there these they this those through to too under until up very was we were what when where which
while who whom why will with would you your yours yourself yourselves www http https html htm php`) {
		stopwords[w] = struct{}{}
	}
}

// normalize NFKC规范化并做大小写折叠
// cases.Caser有状态,每次调用单独创建
func normalize(text string) string {
	return cases.Fold().String(norm.NFKC.String(text))
}

// Words 以非字母/数字字符切分,返回规范化后的词
func Words(text string) []string {
	return strings.FieldsFunc(normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Terms 分词、去停用词并做Snowball词干化
func Terms(text string) []string {
	words := Words(text)
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		stem, err := snowball.Stem(w, "english", true)
		if err != nil || stem == "" {
			continue
		}
		terms = append(terms, stem)
	}
	return terms
}

// InformationDensity 不同词数/总词数,空文本为0
func InformationDensity(content string) float64 {
	words := Words(content)
	if len(words) == 0 {
		return 0
	}
	distinct := make(map[string]struct{}, len(words))
	for _, w := range words {
		distinct[w] = struct{}{}
	}
	return float64(len(distinct)) / float64(len(words))
}
