package scoring

import (
	"maps"
	"math"
	"slices"
)

// Cosine 计算两组词项的TF-IDF余弦相似度
// 语料为这两篇文档, idf = ln((1+n)/(1+df)) + 1, 向量经L2归一化
func Cosine(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	tfA := termFrequencies(a)
	tfB := termFrequencies(b)

	const n = 2.0
	idf := func(term string) float64 {
		df := 0.0
		if _, ok := tfA[term]; ok {
			df++
		}
		if _, ok := tfB[term]; ok {
			df++
		}
		return math.Log((1+n)/(1+df)) + 1
	}

	vecA := weigh(tfA, idf)
	vecB := weigh(tfB, idf)

	// 按词项排序累加,保证结果可复现
	var dot float64
	for _, term := range slices.Sorted(maps.Keys(vecA)) {
		if wb, ok := vecB[term]; ok {
			dot += vecA[term] * wb
		}
	}
	return clamp(dot)
}

func termFrequencies(terms []string) map[string]float64 {
	tf := make(map[string]float64, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	return tf
}

// weigh tf*idf后做L2归一化
func weigh(tf map[string]float64, idf func(string) float64) map[string]float64 {
	vec := make(map[string]float64, len(tf))
	var norm float64
	for _, term := range slices.Sorted(maps.Keys(tf)) {
		w := tf[term] * idf(term)
		vec[term] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for term := range vec {
		vec[term] /= norm
	}
	return vec
}

// clamp 将有限值限制在[0,1],NaN原样返回
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return v
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
