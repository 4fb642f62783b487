// Package analysis turns simulator output into I-V tables and statistics.
//
//   - [LoadCurve]: read the bias sweep and its current from a .raw file
//   - [Curve.Stats]: open-circuit voltage, short-circuit current, maximum
//     power point and fill factor
//   - [Collector]: walk the output tree and decode every result
//   - [Table]: one CSV per dataset and temperature, one row per sweep point
//   - [Summary]: one row per panel with its curve statistics
//   - [Describe]: count, mean, std, quartiles and extremes of a column
//
// # Output
//
// Tables are written to {output}/Data/{dataset}/{dataset}-Temp{T}.csv and
// summaries to {output}/Data/{dataset}/{dataset}-summary.csv. Panel IDs
// number the decoded files of one dataset from 1, across temperatures.
package analysis
