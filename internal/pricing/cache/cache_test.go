package cache

import (
	"testing"
	"time"
)

func TestGetSet_RoundTrip(t *testing.T) {
	c := New(time.Hour, time.Hour)
	defer c.Close()

	c.Set("k", []byte("v1"))
	got, ok := c.Get("k")
	if !ok || string(got) != "v1" {
		t.Fatalf("Get(k) = %q, %v, want v1, true", got, ok)
	}
}

func TestGet_Miss(t *testing.T) {
	c := New(time.Hour, time.Hour)
	defer c.Close()

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("Get(missing) ok = true, want false")
	}
}

func TestGet_ExpiredEntryIsAMiss(t *testing.T) {
	c := New(time.Millisecond, time.Hour)
	defer c.Close()

	c.Set("k", []byte("v"))
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("Get(k) after TTL expired ok = true, want false")
	}
}

func TestGet_ReturnsACopyNotTheStoredSlice(t *testing.T) {
	c := New(time.Hour, time.Hour)
	defer c.Close()

	c.Set("k", []byte("v"))
	got, _ := c.Get("k")
	got[0] = 'X'

	again, _ := c.Get("k")
	if string(again) != "v" {
		t.Fatalf("stored value mutated via returned slice: %q", again)
	}
}

func TestKey_NormalizesCasingAndWhitespace(t *testing.T) {
	k1 := Key(" Apple ", "iPhone 13")
	k2 := Key("apple", "iPhone 13")
	if k1 != k2 {
		t.Fatalf("Key differs on casing/whitespace: %q vs %q", k1, k2)
	}
}

func TestKey_DistinctInputsProduceDistinctKeys(t *testing.T) {
	if Key("a", "b") == Key("b", "a") {
		t.Fatalf("Key(a,b) == Key(b,a), want distinct keys for distinct component order")
	}
}

func TestSortedPairs_OrderedByKeyRegardlessOfInsertion(t *testing.T) {
	got := SortedPairs(map[string]string{"color": "black", "storage": "128gb"})
	want := []string{"color=black", "storage=128gb"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("SortedPairs = %v, want %v", got, want)
	}
}

func TestSortedList_NormalizesAndSorts(t *testing.T) {
	got := SortedList([]string{" Unlocked ", "cracked screen", "Box"})
	want := []string{"box", "cracked screen", "unlocked"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedList = %v, want %v", got, want)
		}
	}
}
