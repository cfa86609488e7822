package core

var (
	DefaultIncomeCategories = []string{
		"Salary",
		"Bonus",
		"Side income",
		"Investment returns",
		"Other",
	}

	DefaultExpenseCategories = []string{
		"Food",
		"Transport",
		"Housing",
		"Utilities",
		"Communication",
		"Medical",
		"Entertainment",
		"Shopping",
		"Other",
	}
)

// Categories lists the default categories for a kind.
func Categories(k Kind) []string {
	switch k {
	case Income:
		return append([]string(nil), DefaultIncomeCategories...)
	case Expense:
		return append([]string(nil), DefaultExpenseCategories...)
	default:
		return nil
	}
}
