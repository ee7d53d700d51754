package openrouter

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// promptEstimator считает токены промпта локально. Словари tiktoken скачиваются
// при первом обращении, поэтому оценка включается только флагом конфигурации.
type promptEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func (e *promptEstimator) estimate(model string, texts ...string) (int, error) {
	e.once.Do(func() {
		// "openai/gpt-4o-mini" -> "gpt-4o-mini"
		name := model
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			name = name[i+1:]
		}
		e.enc, e.err = tiktoken.EncodingForModel(name)
		if e.err != nil {
			e.enc, e.err = tiktoken.GetEncoding("cl100k_base")
		}
	})
	if e.err != nil {
		return 0, e.err
	}
	n := 0
	for _, t := range texts {
		n += len(e.enc.Encode(t, nil, nil))
	}
	return n, nil
}
