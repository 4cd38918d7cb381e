package main

import "testing"

func TestTableFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain_stem", in: "trips.parquet", want: "trips"},
		{name: "directory_stripped", in: "/data/exports/trips.parquet", want: "trips"},
		{name: "dashes_cleaned", in: "yellow_tripdata_2024-01.parquet", want: "yellow_tripdata_2024_01"},
		{name: "csv_extension", in: "fixtures/trips.csv", want: "trips"},
		{name: "no_extension", in: "trips", want: "trips"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tableFromPath(tc.in); got != tc.want {
				t.Fatalf("tableFromPath(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
