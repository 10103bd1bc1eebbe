/*
Command conjunct finds close approaches among Earth orbiting objects.

Contents

  Program overview
  Command line usage
  Configuration
  Input format
  Algorithm outline


Program overview

Input is a file of two-line element sets.  Each object is propagated with
SGP4 over a short horizon, sampled at a fixed step, and every pair of
objects is checked for the smallest separation found at a common sample
time.  Pairs closer than a threshold are conjunctions.  They form a graph,
and each conjunction gets a risk score.

Sample run, using the bundled sample set:

  $ conjunct -demo -minutes 60 -threshold 50 -at 2024-01-01T00:00:00Z
  Nodes: 7
  Edges (close approaches): 4

  Top risky conjunctions:
   #  U                  V                  MinDist(km)   Risk  Closest sample (UTC)
  --------------------------------------------------------------------------------
   1  ISS (ZARYA)        ISS DEB (ALPHA)           1.17  1.000  2024-01-01 00:00:00
  ...

Seven objects of the eight in the set are used.  The eighth has a bad
checksum and is dropped.


Command line usage

  Usage: conjunct [options] <tlefile>    find conjunctions among element sets in file
         conjunct [options] -            read element sets from stdin
         conjunct [options] -demo        use the bundled sample set
         conjunct [options] -source <s>  fetch a Celestrak group (active, stations) or URL
         conjunct [options]              fetch the configured source
         conjunct -h                     display help
         conjunct -v                     display version and copyright

  Options:
         -c <config-file>
         -minutes <horizon>    -step <minutes>     -threshold <km>
         -max <objects>        -topk <n>           -workers <n>
         -at <RFC 3339 time>   -json               -yaml
         -neo4j <uri>          -debug

With no file argument and neither -demo nor -source, element sets are
fetched from the config key source, default "active".

Samples are taken at -step minute intervals from the start time through
-minutes, inclusive.  The start time is the time the program starts unless
-at is given, truncated to the whole second.  Runs with the same input,
options, and start time produce identical results.

-max limits the number of element sets used, taking them in file order.
The work grows with the square of the number of objects, so the default
is a modest 60.  -max 0 removes the limit.

-topk limits the table to the riskiest conjunctions.  -json and -yaml write
the full summary, still limited by -topk, in machine readable form.

-neo4j exports the graph to a Neo4j or Memgraph database.  Objects are
merged by name; conjunctions are added per run.


Configuration

A TOML configuration file can be given with -c.  Keys:

  horizon_minutes = 120
  step_minutes = 10
  close_threshold_km = 10.0
  max_objects = 60
  top_k = 10
  workers = 0          # 0 uses all processors
  source = "active"

  [server]
  addr = ":8000"

  [store]
  uri = "bolt://localhost:7687"
  user = ""
  password = ""
  database = ""

  [log]
  debug = false

The values shown are the defaults.  Environment variables CONJUNCT_<KEY>,
CONJUNCT_NEO4J_URI for example, override the file.  Command line options
override both.  Invalid settings, such as a step longer than the horizon,
stop the program before any work is done.


Input format

Element sets are three lines: a name, then a line beginning "1 ", then a
line beginning "2 ".  Blank lines are ignored.  Lines that do not start a
group are skipped one at a time, so headings or a damaged group do not
disturb the groups that follow.  Groups with bad checksums or fields the
model cannot use are dropped.  Objects with the same name are merged; the
last element set given is used.


Algorithm outline

1.  Each element set is initialized for SGP4 propagation.

2.  Each object is propagated at every sample time.  A failed propagation
loses only that sample.

3.  For every pair of objects, separations are computed at the sample times
where both objects have positions.  The smallest is the pair's minimum
distance.  A pair with no common samples has no minimum and cannot be a
conjunction.

4.  Pairs with a minimum distance strictly less than the threshold are
edges of the conjunction graph.

5.  Each edge is scored,

	risk = clip((1 - d/100) * (1 + 0.1*(deg-1)), 0, 1)

where d is the minimum distance in km and deg is the larger of the two
endpoint degrees, at least 1.  The score falls to zero at 100 km and rises
10% for each additional conjunction of the busier object.  It is a
heuristic ranking, not a collision probability.

Steps 2 and 3 run concurrently across objects.

-------------
Public domain.
*/
package main
