package extraction

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/cheque-ocr/internal/llm"
)

// mockModel is a mock implementation of llm.Model that counts calls
type mockModel struct {
	chunks  []string
	err     error
	calls   int
	prompts []string
	params  llm.Params
}

func (m *mockModel) Generate(ctx context.Context, prompt string, params llm.Params) ([]string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.params = params
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}

func (m *mockModel) Close() error {
	return nil
}

func configWithCredential() Config {
	cfg := DefaultConfig()
	cfg.Credential = "test-token"
	return cfg
}

var _ = Describe("formatFragments", func() {
	It("skips low-confidence and short fragments but keeps their numbering", func() {
		fragments := []Fragment{
			NewFragment("PAY", 0.95, [4]Point{{0, 0}, {40, 0}, {40, 20}, {0, 20}}),
			NewFragment("noise", 0.1, [4]Point{}),
			NewFragment(" x ", 0.99, [4]Point{}),
			NewFragment("Jane Doe", 0.874, [4]Point{{100, 50}, {202, 50}, {202, 70}, {100, 70}}),
		}
		Expect(formatFragments(fragments, 0.3, 2)).To(Equal(
			"[1] 'PAY' (conf: 0.95, pos: 20,10)\n" +
				"[4] 'Jane Doe' (conf: 0.87, pos: 151,60)",
		))
	})

	It("keeps fragments exactly at the threshold", func() {
		Expect(formatFragments([]Fragment{frag("ok", 0.3)}, 0.3, 2)).To(ContainSubstring("'ok'"))
	})
})

var _ = Describe("parseModelResponse", func() {
	var (
		response string
		fields   map[string]FieldValue
		err      error
	)

	JustBeforeEach(func() {
		fields, err = parseModelResponse(response)
	})

	When("the response is wrapped in prose", func() {
		BeforeEach(func() {
			response = "Sure! ```json\n{\"payee_name\": \"Jane Doe\", \"amount_numerical\": \"500.00\", \"date\": \"\"}\n``` Hope that helps"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("assigns the model confidence to non-empty fields", func() {
			Expect(fields).To(Equal(map[string]FieldValue{
				FieldPayeeName:       {Text: "Jane Doe", Confidence: 0.9},
				FieldAmountNumerical: {Text: "500.00", Confidence: 0.9},
			}))
		})
	})

	When("the amount is a JSON number", func() {
		BeforeEach(func() {
			response = `{"payee_name": null, "amount_numerical": 12500.5, "date": "01-01-2025"}`
		})

		It("keeps the literal number text", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(fields[FieldAmountNumerical].Text).To(Equal("12500.5"))
			Expect(fields).NotTo(HaveKey(FieldPayeeName))
		})
	})

	When("a value is only whitespace or padded", func() {
		BeforeEach(func() {
			response = `{"payee_name": "   ", "amount_numerical": " 500.00 ", "date": "\t"}`
		})

		It("treats blank values as not found and trims the rest", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(fields).To(Equal(map[string]FieldValue{
				FieldAmountNumerical: {Text: "500.00", Confidence: 0.9},
			}))
		})
	})

	When("the response has extra keys", func() {
		BeforeEach(func() {
			response = `{"amount_written": "five hundred", "date": "01-01-2025"}`
		})

		It("ignores them", func() {
			Expect(fields).To(HaveLen(1))
			Expect(fields).To(HaveKey(FieldDate))
		})
	})

	When("there are no braces", func() {
		BeforeEach(func() {
			response = "I could not read the cheque"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(errNoJSON))
		})
	})

	When("the closing brace comes first", func() {
		BeforeEach(func() {
			response = "} oops {"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(errInvalidJSON))
		})
	})

	When("the JSON is malformed", func() {
		BeforeEach(func() {
			response = `{"payee_name": "Jane`
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Resolver", func() {
	var (
		cfg        Config
		model      *mockModel
		resolver   *Resolver
		fragments  []Fragment
		resolution Resolution
	)

	BeforeEach(func() {
		cfg = configWithCredential()
		model = &mockModel{}
		fragments = []Fragment{
			frag("Date: 01-01-2025", 0.8),
			frag("Jane Doe", 0.85),
		}
	})

	JustBeforeEach(func() {
		resolver = NewResolver(cfg, model)
		resolution = resolver.Resolve(context.Background(), fragments)
	})

	When("no credential is configured", func() {
		BeforeEach(func() {
			cfg.Credential = ""
		})

		It("reports the resolver unavailable", func() {
			Expect(resolver.Available()).To(BeFalse())
			Expect(resolution.Outcome).To(Equal(OutcomeUnavailable))
		})

		It("does not call the model", func() {
			Expect(model.calls).To(Equal(0))
		})

		It("uses the local heuristic", func() {
			Expect(resolution.Fields[FieldDate]).To(Equal(FieldValue{Text: "01-01-2025", Confidence: 0.8}))
			Expect(resolution.Fields[FieldPayeeName]).To(Equal(FieldValue{Text: "Jane Doe", Confidence: 0.85}))
		})
	})

	When("the model answers with JSON", func() {
		BeforeEach(func() {
			model.chunks = []string{`{"payee_name": "JOHN`, ` SMITH", "amount_numerical": "", "date": "02-02-2025"}`}
		})

		It("calls the model once with the sampling parameters", func() {
			Expect(model.calls).To(Equal(1))
			Expect(model.params).To(Equal(llm.Params{Temperature: 0.1, MaxTokens: 200, TopP: 0.9}))
		})

		It("embeds the fragments in the prompt", func() {
			Expect(model.prompts[0]).To(ContainSubstring("[1] 'Date: 01-01-2025' (conf: 0.80, pos: 50,10)"))
		})

		It("joins the chunks and returns the model fields", func() {
			Expect(resolution.Outcome).To(Equal(OutcomeRemote))
			Expect(resolution.Fields).To(Equal(map[string]FieldValue{
				FieldPayeeName: {Text: "JOHN SMITH", Confidence: 0.9},
				FieldDate:      {Text: "02-02-2025", Confidence: 0.9},
			}))
		})
	})

	When("the model call fails", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("connection refused")
			model.err = setupErr
		})

		It("records the failure", func() {
			Expect(resolution.Outcome).To(Equal(OutcomeCallFailed))
			Expect(resolution.Err).To(MatchError(setupErr))
		})

		It("falls back to the local heuristic", func() {
			Expect(resolution.Fields[FieldDate].Text).To(Equal("01-01-2025"))
		})
	})

	When("the model answer has no JSON", func() {
		BeforeEach(func() {
			model.chunks = []string{"no idea"}
		})

		It("records the parse failure", func() {
			Expect(resolution.Outcome).To(Equal(OutcomeParseFailed))
			Expect(resolution.Err).To(HaveOccurred())
		})

		It("falls back to the local heuristic", func() {
			Expect(resolution.Fields[FieldPayeeName].Text).To(Equal("Jane Doe"))
		})
	})
})

var _ = Describe("heuristic", func() {
	var (
		fragments []Fragment
		fields    map[string]FieldValue
	)

	JustBeforeEach(func() {
		fields = NewResolver(DefaultConfig(), nil).heuristic(fragments)
	})

	When("an amount fragment is confident enough", func() {
		BeforeEach(func() {
			fragments = []Fragment{
				frag("Rs 12,5000.00", 0.9),
				frag("99999", 0.7),
			}
		})

		It("takes the first number run", func() {
			Expect(fields[FieldAmountNumerical]).To(Equal(FieldValue{Text: "12,5000.00", Confidence: 0.9}))
		})
	})

	When("the only long number has low confidence", func() {
		BeforeEach(func() {
			fragments = []Fragment{frag("123456", 0.7)}
		})

		It("finds no amount", func() {
			Expect(fields).NotTo(HaveKey(FieldAmountNumerical))
		})
	})

	When("fragments look like names", func() {
		BeforeEach(func() {
			fragments = []Fragment{
				frag("Jane Doe", 0.6),
				frag("Mary Ann O'Neil", 0.9),
				frag("John Smith", 0.9),
			}
		})

		It("keeps the first of the most confident", func() {
			Expect(fields[FieldPayeeName]).To(Equal(FieldValue{Text: "Mary Ann O'Neil", Confidence: 0.9}))
		})
	})

	DescribeTable("rejecting names",
		func(text string) {
			Expect(NewResolver(DefaultConfig(), nil).looksLikeName(text)).To(BeFalse())
		},
		Entry("single word", "Jane"),
		Entry("too many words", "One Two Three Four Five"),
		Entry("lower case word", "Jane doe"),
		Entry("single letter word", "Jane D"),
		Entry("digit", "Jane Doe2"),
		Entry("stop word", "Pay Jane"),
		Entry("stop word in caps", "STATE BANK"),
	)

	DescribeTable("accepting names",
		func(text string) {
			Expect(NewResolver(DefaultConfig(), nil).looksLikeName(text)).To(BeTrue())
		},
		Entry("two words", "Jane Doe"),
		Entry("upper case", "JANE DOE"),
		Entry("punctuated token", "Jane D. Doe"),
	)
})

var _ = Describe("Merge", func() {
	var (
		result     Result
		resolution Resolution
		filled     []string
	)

	BeforeEach(func() {
		result = newResult(nil)
		result.AmountNumerical = FieldValue{Text: "500.00", Confidence: 0.5}
		resolution = Resolution{
			Outcome: OutcomeRemote,
			Fields: map[string]FieldValue{
				FieldAmountNumerical: {Text: "900.00", Confidence: 0.9},
				FieldDate:            {Text: "01-01-2025", Confidence: 0.9},
				FieldAmountWritten:   {Text: "nine hundred only", Confidence: 0.9},
			},
		}
	})

	JustBeforeEach(func() {
		filled = Merge(&result, resolution)
	})

	It("never overwrites a resolved field", func() {
		Expect(result.AmountNumerical).To(Equal(FieldValue{Text: "500.00", Confidence: 0.5}))
	})

	It("fills empty eligible fields", func() {
		Expect(result.Date).To(Equal(FieldValue{Text: "01-01-2025", Confidence: 0.9}))
		Expect(filled).To(Equal([]string{FieldDate}))
	})

	It("never fills the written amount", func() {
		Expect(result.AmountWritten.Empty()).To(BeTrue())
	})
})
