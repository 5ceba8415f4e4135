// Package paging предоставляет единый контракт пагинации для read-side запросов.
package paging

// Page одна страница результата.
// Номера страниц начинаются с 1; TotalPages = ceil(TotalElements/Size).
// Для пустого результата TotalPages всегда 0.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// Slice выбирает страницу из отсортированного набора.
// page меньше 1 трактуется как 1; size >= 1 — предусловие вызывающего.
// Запрос за пределами набора возвращает пустой Content с сохранением
// метаданных полного результата.
func Slice[T any](items []T, page, size int) Page[T] {
	internal := page - 1
	if internal < 0 {
		internal = 0
	}

	total := len(items)
	start := internal * size
	end := start + size
	if end > total {
		end = total
	}

	content := []T{}
	if start < total {
		content = items[start:end]
	}

	return Page[T]{
		Content:       content,
		Number:        internal + 1,
		Size:          size,
		TotalElements: int64(total),
		TotalPages:    totalPages(int64(total), size),
	}
}

func totalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
