package categorizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name   string
		input  Input
		want   string
		wantOK bool
	}{
		{
			name: "keyword rule matches description",
			input: Input{
				Description: "Morning coffee",
				Merchant:    "Local cafe",
				Rules:       []Rule{{KeywordPattern: "coffee", CategoryID: "cat-food", Priority: 10}},
				Dictionary:  []KeywordEntry{{Keyword: "cafe", CategoryID: "cat-dining"}},
			},
			want:   "cat-food",
			wantOK: true,
		},
		{
			name: "dictionary fallback",
			input: Input{
				Description: "Winners shopping",
				Merchant:    "Winners",
				Dictionary:  []KeywordEntry{{Keyword: "winners", CategoryID: "cat-grocery"}},
			},
			want:   "cat-grocery",
			wantOK: true,
		},
		{
			name:   "no match",
			input:  Input{Description: "Something unusual", Merchant: "Nobody"},
			wantOK: false,
		},
		{
			name: "case and surrounding whitespace ignored",
			input: Input{
				Merchant: "  SUPER U Grand Baie ",
				Rules:    []Rule{{MerchantPattern: " Super U ", CategoryID: "cat-grocery"}},
			},
			want:   "cat-grocery",
			wantOK: true,
		},
		{
			name: "substring containment not word match",
			input: Input{
				Description: "juicebar smoothie",
				Dictionary:  []KeywordEntry{{Keyword: "juice", CategoryID: "cat-dining"}},
			},
			want:   "cat-dining",
			wantOK: true,
		},
		{
			name: "merchant pattern does not look at description",
			input: Input{
				Description: "paid at shell",
				Merchant:    "Total",
				Rules:       []Rule{{MerchantPattern: "shell", CategoryID: "cat-fuel"}},
			},
			wantOK: false,
		},
		{
			name: "keyword pattern does not look at merchant",
			input: Input{
				Description: "fuel",
				Merchant:    "Shell Phoenix",
				Rules:       []Rule{{KeywordPattern: "shell", CategoryID: "cat-fuel"}},
			},
			wantOK: false,
		},
		{
			name: "empty and blank patterns never match",
			input: Input{
				Description: "anything",
				Merchant:    "anyone",
				Rules: []Rule{
					{CategoryID: "cat-empty", Priority: 100},
					{MerchantPattern: "   ", KeywordPattern: "", CategoryID: "cat-blank", Priority: 50},
				},
				Dictionary: []KeywordEntry{{Keyword: " ", CategoryID: "cat-dict-blank"}},
			},
			wantOK: false,
		},
		{
			name: "merchant pattern checked before keyword pattern within a rule",
			input: Input{
				Description: "groceries",
				Merchant:    "Intermart",
				Rules: []Rule{
					{MerchantPattern: "intermart", KeywordPattern: "groceries", CategoryID: "cat-a"},
				},
			},
			want:   "cat-a",
			wantOK: true,
		},
		{
			name: "dictionary matches description when merchant absent",
			input: Input{
				Description: "CEB electricity bill",
				Dictionary: []KeywordEntry{
					{Keyword: "cwa", CategoryID: "cat-water"},
					{Keyword: "ceb", CategoryID: "cat-utilities"},
				},
			},
			want:   "cat-utilities",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Categorize(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategorize_PriorityBeatsInputOrder(t *testing.T) {
	rules := []Rule{
		{KeywordPattern: "payment", CategoryID: "cat-low", Priority: 1},
		{KeywordPattern: "payment", CategoryID: "cat-high", Priority: 20},
		{KeywordPattern: "payment", CategoryID: "cat-mid", Priority: 5},
	}
	got, ok := Categorize(Input{Description: "Card payment", Rules: rules})
	assert.True(t, ok)
	assert.Equal(t, "cat-high", got)

	// caller order is left alone
	assert.Equal(t, "cat-low", rules[0].CategoryID)
}

func TestCategorize_EqualPriorityKeepsInputOrder(t *testing.T) {
	rules := []Rule{
		{MerchantPattern: "mcb", CategoryID: "cat-first", Priority: 10},
		{MerchantPattern: "mcb", CategoryID: "cat-second", Priority: 10},
	}
	for i := 0; i < 20; i++ {
		got, _ := Categorize(Input{Merchant: "MCB Port Louis", Rules: rules})
		assert.Equal(t, "cat-first", got)
	}
}

func TestCategorize_RuleWinsOverDictionary(t *testing.T) {
	in := Input{
		Description: "Winners weekly shop",
		Merchant:    "Winners",
		Rules:       []Rule{{MerchantPattern: "winners", CategoryID: "cat-household", Priority: 0}},
		Dictionary:  []KeywordEntry{{Keyword: "winners", CategoryID: "cat-grocery"}},
	}
	got, ok := Categorize(in)
	assert.True(t, ok)
	assert.Equal(t, "cat-household", got)
}

func TestCategorize_Deterministic(t *testing.T) {
	in := Input{
		Description: "my.t fibre",
		Merchant:    "Emtel",
		Rules: []Rule{
			{KeywordPattern: "fibre", CategoryID: "cat-a", Priority: 3},
			{MerchantPattern: "emtel", CategoryID: "cat-b", Priority: 3},
		},
		Dictionary: []KeywordEntry{{Keyword: "emtel", CategoryID: "cat-telecom"}},
	}
	first, _ := Categorize(in)
	for i := 0; i < 50; i++ {
		got, _ := Categorize(in)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, "cat-a", first)
}

func TestExplain(t *testing.T) {
	in := Input{
		Description: "Shell Bagatelle",
		Rules: []Rule{
			{KeywordPattern: "nope", CategoryID: "cat-x", Priority: 9},
		},
		Dictionary: []KeywordEntry{
			{Keyword: "total", CategoryID: "cat-transport"},
			{Keyword: "SHELL", CategoryID: "cat-transport"},
		},
	}
	m := Explain(in)
	assert.True(t, m.Matched())
	assert.Equal(t, SourceDictionary, m.Source)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, "shell", m.Pattern)

	in.Rules = append(in.Rules, Rule{KeywordPattern: "bagatelle", CategoryID: "cat-mall", Priority: 1})
	m = Explain(in)
	assert.Equal(t, SourceRuleKeyword, m.Source)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, "cat-mall", m.CategoryID)

	none := Explain(Input{Description: "x"})
	assert.False(t, none.Matched())
	assert.Equal(t, -1, none.Index)
}
