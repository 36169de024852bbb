package dto

const (
	Interval1Day   string = "1d"
	Interval1Week  string = "1w"
	Interval1Month string = "1M"
)

const (
	SourceDatabase string = "database"
	SourceCSV      string = "csv"
	SourceRemote   string = "remote"
)
