package cfapi

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDrainPagesSinglePage(t *testing.T) {
	fetch := func(ctx context.Context, page int) (*Page[string], error) {
		if page != FirstPage {
			t.Fatalf("unexpected page %d", page)
		}
		return &Page[string]{
			Pagination: Pagination{TotalResults: 2, TotalPages: 1},
			Resources:  []string{"a", "b"},
		}, nil
	}

	got, err := DrainPages(context.Background(), fetch)
	if err != nil {
		t.Fatalf("DrainPages failed: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestDrainPagesWalksEveryPage(t *testing.T) {
	const totalPages = 3
	var fetched []int
	fetch := func(ctx context.Context, page int) (*Page[int], error) {
		fetched = append(fetched, page)
		return &Page[int]{
			Pagination: Pagination{TotalResults: totalPages, TotalPages: totalPages},
			Resources:  []int{page},
		}, nil
	}

	got, err := DrainPages(context.Background(), fetch)
	if err != nil {
		t.Fatalf("DrainPages failed: %v", err)
	}
	if len(fetched) != totalPages {
		t.Fatalf("expected %d fetches, got %d", totalPages, len(fetched))
	}
	for i, page := range fetched {
		if page != i+1 {
			t.Errorf("fetch %d used page %d, expected %d", i, page, i+1)
		}
	}
	if len(got) != totalPages {
		t.Errorf("expected %d resources, got %d", totalPages, len(got))
	}
}

func TestDrainPagesAbortsOnPageError(t *testing.T) {
	pageErr := errors.New("boom")
	fetch := func(ctx context.Context, page int) (*Page[int], error) {
		if page == 2 {
			return nil, pageErr
		}
		return &Page[int]{
			Pagination: Pagination{TotalResults: 3, TotalPages: 3},
			Resources:  []int{page},
		}, nil
	}

	got, err := DrainPages(context.Background(), fetch)
	if err == nil {
		t.Fatal("expected error from failed page")
	}
	if !errors.Is(err, pageErr) {
		t.Errorf("expected wrapped page error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no partial result, got %v", got)
	}
}

func TestDrainPagesEmptyListing(t *testing.T) {
	fetch := func(ctx context.Context, page int) (*Page[string], error) {
		return &Page[string]{Pagination: Pagination{TotalPages: 1}}, nil
	}

	got, err := DrainPages(context.Background(), fetch)
	if err != nil {
		t.Fatalf("DrainPages failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestDrainPagesNilPage(t *testing.T) {
	fetch := func(ctx context.Context, page int) (*Page[string], error) {
		return nil, nil
	}
	if _, err := DrainPages(context.Background(), fetch); err == nil {
		t.Fatal("expected error for nil page")
	}
}

func ExampleDrainPages() {
	fetch := func(ctx context.Context, page int) (*Page[string], error) {
		return &Page[string]{
			Pagination: Pagination{TotalResults: 1, TotalPages: 1},
			Resources:  []string{"ticktock-log"},
		}, nil
	}
	names, _ := DrainPages(context.Background(), fetch)
	fmt.Println(names)
	// Output: [ticktock-log]
}
