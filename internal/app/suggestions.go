package app

import (
	"hash/fnv"
	"math/rand"
)

const fallbackSuggestionCount = 3

// fallbackSuggestionPools holds the locally bundled follow-up prompts used
// when the suggestion generator fails or returns nothing, keyed by UI
// language.
var fallbackSuggestionPools = map[string][]string{
	"en": {
		"Explain that in simpler terms",
		"Give me a concrete example",
		"Summarize the key points",
		"What are the tradeoffs here?",
		"Can you go deeper on one part?",
		"What should I try next?",
		"Rewrite that more concisely",
		"What are common mistakes to avoid?",
	},
	"th": {
		"อธิบายให้เข้าใจง่ายกว่านี้หน่อย",
		"ขอตัวอย่างที่เป็นรูปธรรม",
		"สรุปประเด็นสำคัญให้หน่อย",
		"ข้อดีข้อเสียคืออะไรบ้าง",
		"ช่วยลงรายละเอียดเพิ่มเติมได้ไหม",
		"ควรทำอะไรต่อไปดี",
		"ช่วยเขียนให้กระชับกว่านี้",
		"ข้อผิดพลาดที่พบบ่อยมีอะไรบ้าง",
	},
}

// FallbackSuggestions picks three prompts from the language pool,
// deterministically shuffled by seed so the same message always shows the
// same fallbacks. Unknown languages use the English pool.
func FallbackSuggestions(lang, seed string) []string {
	pool, ok := fallbackSuggestionPools[lang]
	if !ok {
		pool = fallbackSuggestionPools["en"]
	}
	out := make([]string, len(pool))
	copy(out, pool)

	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	if len(out) > fallbackSuggestionCount {
		out = out[:fallbackSuggestionCount]
	}
	return out
}
