package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoanStatus is the single-character status code stored on a book copy.
type LoanStatus string

const (
	LoanStatusMaintenance LoanStatus = "m"
	LoanStatusOnLoan      LoanStatus = "o"
	LoanStatusAvailable   LoanStatus = "a"
	LoanStatusReserved    LoanStatus = "r"
)

var loanStatusLabels = map[LoanStatus]string{
	LoanStatusMaintenance: "Maintenance",
	LoanStatusOnLoan:      "On loan",
	LoanStatusAvailable:   "Available",
	LoanStatusReserved:    "Reserved",
}

// AllLoanStatuses lists the status codes in display order.
var AllLoanStatuses = []LoanStatus{
	LoanStatusMaintenance,
	LoanStatusOnLoan,
	LoanStatusAvailable,
	LoanStatusReserved,
}

// Label returns the human readable name of the status.
func (s LoanStatus) Label() string {
	if label, ok := loanStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid reports whether s is one of the four known codes.
func (s LoanStatus) IsValid() bool {
	_, ok := loanStatusLabels[s]
	return ok
}

type Author struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FirstName   string     `gorm:"size:100;not null" json:"first_name"`
	LastName    string     `gorm:"size:100;not null;index" json:"last_name"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `gorm:"type:date" json:"date_of_death,omitempty"`
	Books       []Book     `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"books,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Author) TableName() string {
	return "authors"
}

func (a Author) String() string {
	return a.FirstName + " " + a.LastName
}

// Lifespan renders "1920-01-02 - 1992-04-06" style ranges, leaving unknown
// ends blank.
func (a Author) Lifespan() string {
	if a.DateOfBirth == nil && a.DateOfDeath == nil {
		return ""
	}
	var born, died string
	if a.DateOfBirth != nil {
		born = a.DateOfBirth.Format("2006-01-02")
	}
	if a.DateOfDeath != nil {
		died = a.DateOfDeath.Format("2006-01-02")
	}
	return strings.TrimSpace(born + " - " + died)
}

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Genre) TableName() string {
	return "genres"
}

type Language struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Language) TableName() string {
	return "languages"
}

// Book is a catalog entry, not a physical copy.
type Book struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Title      string         `gorm:"size:200;not null;index" json:"title"`
	Summary    string         `gorm:"size:1000" json:"summary"`
	ISBN       string         `gorm:"column:isbn;size:13;uniqueIndex;not null" json:"isbn"`
	AuthorID   *uint          `gorm:"index" json:"author_id,omitempty"`
	Author     *Author        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	LanguageID *uint          `gorm:"index" json:"language_id,omitempty"`
	Language   *Language      `gorm:"foreignKey:LanguageID;constraint:OnDelete:SET NULL" json:"language,omitempty"`
	Genres     []Genre        `gorm:"many2many:book_genres;" json:"genres,omitempty"`
	Instances  []BookInstance `gorm:"foreignKey:BookID;constraint:OnDelete:RESTRICT" json:"instances,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// DisplayGenre joins the genre names for list views.
func (b Book) DisplayGenre() string {
	names := make([]string, 0, len(b.Genres))
	for _, g := range b.Genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// AuthorName returns the author's full name or an empty string.
func (b Book) AuthorName() string {
	if b.Author == nil {
		return ""
	}
	return b.Author.String()
}

// BookInstance is one physical, loanable copy of a Book.
type BookInstance struct {
	ID         uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	BookID     *uint      `gorm:"index" json:"book_id"`
	Book       *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Imprint    string     `gorm:"size:200;not null" json:"imprint"`
	DueBack    *time.Time `gorm:"type:date;index" json:"due_back,omitempty"`
	Status     LoanStatus `gorm:"size:1;not null;default:'m';index" json:"status"`
	BorrowerID *uint      `gorm:"index" json:"borrower_id,omitempty"`
	Borrower   *User      `gorm:"foreignKey:BorrowerID;constraint:OnDelete:SET NULL" json:"borrower,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (BookInstance) TableName() string {
	return "book_instances"
}

// BeforeCreate assigns the random identifier once, on insert.
func (bi *BookInstance) BeforeCreate(tx *gorm.DB) error {
	if bi.ID == uuid.Nil {
		bi.ID = uuid.New()
	}
	if bi.Status == "" {
		bi.Status = LoanStatusMaintenance
	}
	return nil
}

// IsOverdue reports whether the copy has a due-back date later than today.
//
// NOTE: this is inverted relative to the everyday meaning of "overdue"; the
// catalog has always computed it this way and templates rely on it.
func (bi BookInstance) IsOverdue(today time.Time) bool {
	if bi.DueBack == nil {
		return false
	}
	return truncateDate(*bi.DueBack).After(truncateDate(today))
}

// DisplayID is the short identifier stub shown in admin lists.
func (bi BookInstance) DisplayID() string {
	return bi.ID.String()[:6]
}

func (bi BookInstance) String() string {
	title := ""
	if bi.Book != nil {
		title = bi.Book.Title
	}
	return bi.ID.String() + " (" + title + ")"
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
