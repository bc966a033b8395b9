package rest

import "net/url"

// applyOrder applies the ordering criteria named on the query string, in
// order, primary key first. A leading "-" marks descending order. Field
// names are not validated here: an invalid name is a data-layer error and
// surfaces when the set is evaluated.
func applyOrder(ds DataSet, param string, query url.Values) DataSet {
	if param == "" {
		return ds
	}
	fields := query[param]
	if len(fields) == 0 {
		return ds
	}
	return ds.Order(fields...)
}
