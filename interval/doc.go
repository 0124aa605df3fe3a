/*Package interval defines the genomic coordinate types shared by the
  assembly-region packages: Locus (a single 0-based reference position) and
  Span (a 0-based half-open range on one contig), ordered by the contig order
  of a sam.Header.  It also loads BED files, either as a disjoint union of
  query intervals (MergeSpans) or as an overlap-preserving FeatureIndex.
*/
package interval
