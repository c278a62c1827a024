package job

// ComputePagination derives the pagination metadata of a listing window.
// page and perPage must already be validated as positive.
func ComputePagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 1
	}
	if total < 0 {
		total = 0
	}
	offset := (page - 1) * perPage
	return Pagination{
		CurrentPage: page,
		TotalPages:  (total + perPage - 1) / perPage,
		TotalJobs:   total,
		HasNext:     offset+perPage < total,
		HasPrevious: page > 1,
	}
}

// Offset returns the number of rows skipped before page.
func Offset(page, perPage int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * perPage
}
