// Package fcs implements a reader and writer for the Flow Cytometry
// Standard (FCS) file formats 2.0, 3.0, and 3.1.
//
// An FCS file is a single-file binary container holding one or more data
// sets. Each data set pairs a free-form keyword/value TEXT segment with a
// dense numeric DATA segment representing a table of measurement events
// (rows) across parameters (columns). Read decodes the first data set in
// a stream; ReadMultiple iterates every data set chained through
// $NEXTDATA. Write is the symmetric encoder.
//
// Compensation, transformation, gating, and any other downstream
// cytometry analysis are out of scope: this package exposes raw events
// and raw metadata only.
package fcs
