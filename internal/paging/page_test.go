package paging

import "testing"

func TestSlice_SevenElementsPageSizeThree(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	page1 := Slice(items, 1, 3)
	if len(page1.Content) != 3 {
		t.Fatalf("Expected 3 elements on page 1, got %d", len(page1.Content))
	}
	if page1.Content[0] != 1 || page1.Content[2] != 3 {
		t.Errorf("Unexpected page 1 content: %v", page1.Content)
	}
	if page1.TotalElements != 7 {
		t.Errorf("Expected 7 total elements, got %d", page1.TotalElements)
	}
	if page1.TotalPages != 3 {
		t.Errorf("Expected 3 total pages, got %d", page1.TotalPages)
	}

	page2 := Slice(items, 2, 3)
	if len(page2.Content) != 3 {
		t.Fatalf("Expected 3 elements on page 2, got %d", len(page2.Content))
	}
	if page2.Content[0] != 4 {
		t.Errorf("Expected page 2 to start at 4, got %d", page2.Content[0])
	}

	page3 := Slice(items, 3, 3)
	if len(page3.Content) != 1 {
		t.Fatalf("Expected 1 element on page 3, got %d", len(page3.Content))
	}
	if page3.Content[0] != 7 {
		t.Errorf("Expected page 3 to contain 7, got %d", page3.Content[0])
	}
}

func TestSlice_PageBeyondEnd(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	page := Slice(items, 4, 3)
	if len(page.Content) != 0 {
		t.Fatalf("Expected empty content past the end, got %v", page.Content)
	}
	if page.Number != 4 {
		t.Errorf("Expected page number 4, got %d", page.Number)
	}
	if page.TotalElements != 7 {
		t.Errorf("Expected total elements preserved, got %d", page.TotalElements)
	}
	if page.TotalPages != 3 {
		t.Errorf("Expected total pages preserved, got %d", page.TotalPages)
	}
}

func TestSlice_EmptyInput(t *testing.T) {
	page := Slice([]string{}, 1, 10)

	if len(page.Content) != 0 {
		t.Errorf("Expected empty content, got %v", page.Content)
	}
	if page.TotalElements != 0 {
		t.Errorf("Expected 0 total elements, got %d", page.TotalElements)
	}
	if page.TotalPages != 0 {
		t.Errorf("Expected 0 total pages for empty result, got %d", page.TotalPages)
	}
}

func TestSlice_PageBelowOne(t *testing.T) {
	items := []int{1, 2, 3}

	page := Slice(items, 0, 2)
	if page.Number != 1 {
		t.Errorf("Expected page number clamped to 1, got %d", page.Number)
	}
	if len(page.Content) != 2 || page.Content[0] != 1 {
		t.Errorf("Expected first page content, got %v", page.Content)
	}
}

func TestSlice_ExactDivision(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}

	page := Slice(items, 2, 3)
	if page.TotalPages != 2 {
		t.Errorf("Expected 2 total pages, got %d", page.TotalPages)
	}
	if len(page.Content) != 3 || page.Content[2] != 6 {
		t.Errorf("Unexpected last page content: %v", page.Content)
	}
}
