package cheque

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/cheque-ocr/internal/extraction"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	newCheque := func(id string, created time.Time) *Cheque {
		return &Cheque{
			ID:          id,
			Filename:    id + "_cheque.png",
			Original:    "cheque.png",
			ContentType: "image/png",
			Fields: extraction.Result{
				PayeeName: extraction.FieldValue{Text: "Jane Doe", Confidence: 0.95},
				RawOCRResults: []extraction.Fragment{
					extraction.NewFragment("Pay **Jane Doe** AGAINST", 0.95, [4]extraction.Point{{X: 1, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 4}, {X: 1, Y: 4}}),
				},
			},
			Source:    extraction.SourceHeuristic,
			CreatedAt: created,
		}
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveCheque and GetCheque", func() {
		var (
			cheque *Cheque
			saved  *Cheque
			err    error
		)

		BeforeEach(func() {
			cheque = newCheque("test-id", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
			Expect(db.SaveCheque(cheque)).To(Succeed())
		})

		JustBeforeEach(func() {
			saved, err = db.GetCheque("test-id")
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("round-trips the extracted fields and fragments", func() {
			Expect(saved.Fields).To(Equal(cheque.Fields))
		})

		It("round-trips the source and timestamps", func() {
			Expect(saved.Source).To(Equal(extraction.SourceHeuristic))
			Expect(saved.CreatedAt.Equal(cheque.CreatedAt)).To(BeTrue())
		})
	})

	Describe("GetCheque", func() {
		When("cheque does not exist", func() {
			It("returns the error", func() {
				_, err := db.GetCheque("nonexistent")
				Expect(err).To(MatchError(errors.New("cheque not found: nonexistent")))
			})
		})
	})

	Describe("ListCheques", func() {
		When("there are no cheques", func() {
			It("returns an empty list", func() {
				cheques, err := db.ListCheques()
				Expect(err).NotTo(HaveOccurred())
				Expect(cheques).To(BeEmpty())
			})
		})

		When("there are cheques", func() {
			BeforeEach(func() {
				Expect(db.SaveCheque(newCheque("a", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))).To(Succeed())
				Expect(db.SaveCheque(newCheque("b", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))).To(Succeed())
			})

			It("returns them newest first", func() {
				cheques, err := db.ListCheques()
				Expect(err).NotTo(HaveOccurred())
				Expect(cheques).To(HaveLen(2))
				Expect(cheques[0].ID).To(Equal("b"))
				Expect(cheques[1].ID).To(Equal("a"))
			})
		})
	})

	Describe("DeleteCheque", func() {
		BeforeEach(func() {
			Expect(db.SaveCheque(newCheque("test-id", time.Now()))).To(Succeed())
		})

		It("removes the cheque", func() {
			Expect(db.DeleteCheque("test-id")).To(Succeed())
			_, err := db.GetCheque("test-id")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("NewBoltDB", func() {
		When("the path is not writable", func() {
			It("returns the error", func() {
				_, err := NewBoltDB(filepath.Join(tmpDir, "missing", "dir", "test.db"))
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
